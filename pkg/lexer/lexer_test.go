package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return toks
}

func TestScansPunctuationAndKeywords(t *testing.T) {
	toks := scanAll(t, "class Foo < Bar { fun init() { this.x = 1; } }")
	require.NotEmpty(t, toks)
	assert.Equal(t, TokenClass, toks[0].Type)
	assert.Equal(t, TokenIdentifier, toks[1].Type)
	assert.Equal(t, "Foo", toks[1].Lexeme)
}

func TestIntegerAndFloatLiterals(t *testing.T) {
	toks := scanAll(t, "1 2.5 3.")
	assert.Equal(t, TokenInt, toks[0].Type)
	assert.Equal(t, TokenFloat, toks[1].Type)
	// "3." is an int followed by a dot, since a float requires a digit
	// after the decimal point (spec.md §4.1).
	assert.Equal(t, TokenInt, toks[2].Type)
	assert.Equal(t, TokenDot, toks[3].Type)
}

func TestBlockCommentsNest(t *testing.T) {
	toks := scanAll(t, "/* outer /* inner */ still comment */ 42")
	assert.Equal(t, TokenInt, toks[0].Type)
	assert.Equal(t, "42", toks[0].Lexeme)
	assert.Equal(t, TokenEOF, toks[1].Type)
}

func TestStringInterpolation(t *testing.T) {
	toks := scanAll(t, `"a${1}b"`)
	require.Len(t, toks, 4)
	assert.Equal(t, TokenInterpolation, toks[0].Type)
	assert.Equal(t, "a", toks[0].Lexeme)
	assert.Equal(t, TokenInt, toks[1].Type)
	assert.Equal(t, TokenString, toks[2].Type)
	assert.Equal(t, "b", toks[2].Lexeme)
	assert.Equal(t, TokenEOF, toks[3].Type)
}

func TestBacktickKeywordIdentifier(t *testing.T) {
	toks := scanAll(t, "`class` + 1")
	assert.Equal(t, TokenIdentifier, toks[0].Type)
	assert.Equal(t, "class", toks[0].Lexeme)
}

func TestUnterminatedStringIsError(t *testing.T) {
	toks := scanAll(t, `"no closing quote`)
	assert.Equal(t, TokenError, toks[len(toks)-1].Type)
}

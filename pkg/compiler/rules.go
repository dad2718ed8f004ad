package compiler

import "github.com/kristofer/lumen/pkg/lexer"

// Precedence orders Lumen's infix operators low-to-high, the table
// parsePrecedence walks (spec.md §4.2's Pratt table).
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . () []
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

// ParseRule is one row of the Pratt table: the prefix parser to use when
// a token starts an expression, the infix parser to use when it appears
// between two expressions, and the infix binding precedence.
type ParseRule struct {
	Prefix     parseFn
	Infix      parseFn
	Precedence Precedence
}

var rules map[lexer.TokenType]ParseRule

func init() {
	rules = map[lexer.TokenType]ParseRule{
		lexer.TokenLeftParen:   {Prefix: (*Compiler).grouping, Infix: (*Compiler).call, Precedence: PrecCall},
		lexer.TokenLeftBracket: {Prefix: (*Compiler).arrayLiteral, Infix: (*Compiler).index, Precedence: PrecCall},
		lexer.TokenLeftBrace:   {Prefix: (*Compiler).dictionaryLiteral},
		lexer.TokenDot:         {Infix: (*Compiler).dot, Precedence: PrecCall},
		lexer.TokenMinus:       {Prefix: (*Compiler).unary, Infix: (*Compiler).binary, Precedence: PrecTerm},
		lexer.TokenPlus:        {Infix: (*Compiler).binary, Precedence: PrecTerm},
		lexer.TokenSlash:       {Infix: (*Compiler).binary, Precedence: PrecFactor},
		lexer.TokenStar:        {Infix: (*Compiler).binary, Precedence: PrecFactor},
		lexer.TokenDotDot:      {Infix: (*Compiler).rangeOp, Precedence: PrecComparison},
		lexer.TokenBang:        {Prefix: (*Compiler).unary},
		lexer.TokenBangEqual:   {Infix: (*Compiler).binary, Precedence: PrecEquality},
		lexer.TokenEqualEqual:  {Infix: (*Compiler).binary, Precedence: PrecEquality},
		lexer.TokenGreater:      {Infix: (*Compiler).binary, Precedence: PrecComparison},
		lexer.TokenGreaterEqual: {Infix: (*Compiler).binary, Precedence: PrecComparison},
		lexer.TokenLess:         {Infix: (*Compiler).binary, Precedence: PrecComparison},
		lexer.TokenLessEqual:    {Infix: (*Compiler).binary, Precedence: PrecComparison},
		lexer.TokenIdentifier:  {Prefix: (*Compiler).variable},
		lexer.TokenString:      {Prefix: (*Compiler).stringLiteral},
		lexer.TokenInterpolation: {Prefix: (*Compiler).interpolatedString},
		lexer.TokenInt:         {Prefix: (*Compiler).number},
		lexer.TokenFloat:       {Prefix: (*Compiler).number},
		lexer.TokenAnd:         {Infix: (*Compiler).and_, Precedence: PrecAnd},
		lexer.TokenOr:          {Infix: (*Compiler).or_, Precedence: PrecOr},
		lexer.TokenFalse:       {Prefix: (*Compiler).literal},
		lexer.TokenTrue:        {Prefix: (*Compiler).literal},
		lexer.TokenNil:         {Prefix: (*Compiler).literal},
		lexer.TokenThis:        {Prefix: (*Compiler).this_},
		lexer.TokenSuper:       {Prefix: (*Compiler).super_},
		lexer.TokenFun:         {Prefix: (*Compiler).lambda},
		lexer.TokenAwait:       {Prefix: (*Compiler).awaitExpr},
		lexer.TokenYield:       {Prefix: (*Compiler).yieldExpr},
	}
}

func (c *Compiler) getRule(t lexer.TokenType) ParseRule { return rules[t] }

// parsePrecedence is the Pratt engine's core loop (spec.md §4.2): parse
// one prefix expression, then keep consuming infix operators whose
// binding power is at or above minPrec.
func (c *Compiler) parsePrecedence(minPrec Precedence) {
	c.advance()
	prefixRule := c.getRule(c.prev.Type).Prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := minPrec <= PrecAssignment
	prefixRule(c, canAssign)

	for minPrec <= c.getRule(c.cur.Type).Precedence {
		c.advance()
		infixRule := c.getRule(c.prev.Type).Infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

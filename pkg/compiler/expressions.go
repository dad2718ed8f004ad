package compiler

import (
	"strconv"
	"strings"

	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/lexer"
	"github.com/kristofer/lumen/pkg/object"
)

func (c *Compiler) number(canAssign bool) {
	if c.prev.Type == lexer.TokenFloat {
		f, _ := strconv.ParseFloat(c.prev.Lexeme, 64)
		c.emitConstant(object.Float(f))
		return
	}
	i, err := strconv.ParseInt(c.prev.Lexeme, 10, 32)
	if err != nil {
		// Overflows a 32-bit int; spec.md §3.1 keeps Int at int32 width,
		// so fall back to Float rather than wrap.
		f, _ := strconv.ParseFloat(c.prev.Lexeme, 64)
		c.emitConstant(object.Float(f))
		return
	}
	c.emitConstant(object.Int(int32(i)))
}

// unescape processes the backslash escapes the lexer leaves untouched in
// string lexemes (spec.md §4.1: `\n`, `\t`, `\\`, `\"`, `\$`).
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '$':
				b.WriteByte('$')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (c *Compiler) stringLiteral(canAssign bool) {
	s := unescape(c.prev.Lexeme)
	id := c.heap.CopyString(s)
	c.emitConstant(object.Obj(id))
}

// interpolatedString stitches a chain of Interpolation/String tokens and
// the expressions between them into a left-to-right Add concatenation
// (spec.md §4.1's `${...}` interpolation, compiled the way string
// concatenation is compiled elsewhere since Add is overloaded for
// strings per spec.md §4.3).
func (c *Compiler) interpolatedString(canAssign bool) {
	first := unescape(c.prev.Lexeme)
	id := c.heap.CopyString(first)
	c.emitConstant(object.Obj(id))

	for {
		// The embedded expression's own parsePrecedence loop stops on its
		// own here: the scanner's matching `}` never surfaces as a brace
		// token while interpDepth > 0 — it resumes string-scanning and
		// returns the next String/Interpolation segment directly, and
		// neither has an infix rule, so expression() simply returns.
		c.toStringCoerce(c.expression)
		c.emitOp(bytecode.OpAdd)

		if !c.check(lexer.TokenString) && !c.check(lexer.TokenInterpolation) {
			c.errorAtCurrent("Unterminated string interpolation.")
			return
		}
		isFinal := c.check(lexer.TokenString)
		c.advance()
		seg := unescape(c.prev.Lexeme)
		segID := c.heap.CopyString(seg)
		c.emitConstant(object.Obj(segID))
		c.emitOp(bytecode.OpAdd)
		if isFinal {
			break
		}
	}
}

// toStringCoerce compiles inner() then invokes the interpolated value's
// zero-arg `toString` method, so non-string operands (numbers, objects)
// concatenate instead of tripping Add's string/string-only overload.
func (c *Compiler) toStringCoerce(inner func()) {
	inner()
	idx := c.identifierConstant("toString")
	c.emitOp(bytecode.OpInvoke)
	c.emitByte(idx)
	c.emitByte(0)
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Type {
	case lexer.TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(bytecode.OpTrue)
	case lexer.TokenNil:
		c.emitOp(bytecode.OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.prev.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpNegate)
	case lexer.TokenBang:
		c.emitOp(bytecode.OpNot)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.prev.Type
	rule := c.getRule(opType)
	c.parsePrecedence(rule.Precedence + 1)

	switch opType {
	case lexer.TokenPlus:
		c.emitOp(bytecode.OpAdd)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpSubtract)
	case lexer.TokenStar:
		c.emitOp(bytecode.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(bytecode.OpDivide)
	case lexer.TokenEqualEqual:
		c.emitOp(bytecode.OpEqual)
	case lexer.TokenBangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenGreater:
		c.emitOp(bytecode.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case lexer.TokenLess:
		c.emitOp(bytecode.OpLess)
	case lexer.TokenLessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	}
}

// rangeOp compiles `a..b` into a Range object (spec.md §3.2's Range kind);
// bounds are inclusive, matching the only range constructor the runtime
// exposes.
func (c *Compiler) rangeOp(canAssign bool) {
	c.parsePrecedence(PrecComparison + 1)
	c.emitOp(bytecode.OpRange)
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev.Lexeme, canAssign)
}

func (c *Compiler) this_(canAssign bool) {
	if c.currentClass == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

// super_ compiles `super.method` and `super.method(args)`, resolving the
// lookup against the enclosing class's declared superclass rather than
// the receiver's runtime class (spec.md §4.4's super dispatch).
func (c *Compiler) super_(canAssign bool) {
	if c.currentClass == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.currentClass.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}
	c.consume(lexer.TokenDot, "Expect '.' after 'super'.")
	c.consume(lexer.TokenIdentifier, "Expect superclass method name.")
	name := c.identifierConstant(c.prev.Lexeme)

	c.namedVariable("this", false)
	if c.match(lexer.TokenLeftParen) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOp(bytecode.OpSuperInvoke)
		c.emitByte(name)
		c.emitByte(argCount)
		return
	}
	c.namedVariable("super", false)
	c.emitOp(bytecode.OpGetSuper)
	c.emitByte(name)
}

// dot compiles `.name`, `.name = value`, and the fused `.name(args)`
// method-invoke form spec.md §4.3 describes as a single Invoke
// instruction rather than GetProperty + Call.
func (c *Compiler) dot(canAssign bool) {
	c.consume(lexer.TokenIdentifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.prev.Lexeme)

	switch {
	case canAssign && c.match(lexer.TokenEqual):
		c.expression()
		c.emitOp(bytecode.OpSetProperty)
		c.emitByte(name)
	case c.match(lexer.TokenLeftParen):
		argCount := c.argumentList()
		c.emitOp(bytecode.OpInvoke)
		c.emitByte(name)
		c.emitByte(argCount)
	default:
		c.emitOp(bytecode.OpGetProperty)
		c.emitByte(name)
	}
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOp(bytecode.OpCall)
	c.emitByte(argCount)
}

func (c *Compiler) argumentList() byte {
	count := 0
	if !c.check(lexer.TokenRightParen) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	return byte(count)
}

// index compiles `arr[expr]` and `arr[expr] = value` (spec.md §4.3's
// GetIndex/SetIndex, used by both Array and Dictionary objects).
func (c *Compiler) index(canAssign bool) {
	c.expression()
	c.consume(lexer.TokenRightBracket, "Expect ']' after index.")
	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitOp(bytecode.OpSetIndex)
	} else {
		c.emitOp(bytecode.OpGetIndex)
	}
}

func (c *Compiler) arrayLiteral(canAssign bool) {
	count := 0
	if !c.check(lexer.TokenRightBracket) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 elements in an array literal.")
			}
			count++
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightBracket, "Expect ']' after array literal.")
	c.emitOp(bytecode.OpArray)
	c.emitByte(byte(count))
}

func (c *Compiler) dictionaryLiteral(canAssign bool) {
	count := 0
	if !c.check(lexer.TokenRightBrace) {
		for {
			c.expression()
			c.consume(lexer.TokenColon, "Expect ':' after dictionary key.")
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 entries in a dictionary literal.")
			}
			count++
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after dictionary literal.")
	c.emitOp(bytecode.OpDictionary)
	c.emitByte(byte(count))
}

// lambda compiles an anonymous `fun(...) { ... }` expression (spec.md
// §4.2's closures), reusing the same function-compiler machinery a named
// function declaration uses.
func (c *Compiler) lambda(canAssign bool) {
	c.compileFunctionBody(TypeFunction, "<anonymous>")
}

// yieldExpr compiles `yield expr` inside a generator function body
// (spec.md §3.2's Generator kind; suspension is a VM-level operation
// over the current CallFrame, so the compiler only needs to emit the
// value and the opcode).
func (c *Compiler) yieldExpr(canAssign bool) {
	c.current.hasYield = true
	if !c.check(lexer.TokenSemicolon) && !c.check(lexer.TokenRightParen) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpYield)
}

// awaitExpr compiles `await expr` (spec.md §3.2's Promise kind): the VM
// replaces a settled Promise operand with its value (or rethrows its
// rejection) without suspending the frame; awaiting a pending Promise is
// a runtime error.
func (c *Compiler) awaitExpr(canAssign bool) {
	c.parsePrecedence(PrecUnary)
	c.emitOp(bytecode.OpAwait)
}

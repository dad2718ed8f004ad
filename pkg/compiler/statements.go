package compiler

import (
	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/lexer"
)

// declaration is the top of the statement grammar (spec.md §4.2):
// `class`/`trait`/`fun`/`var`/`namespace` declarations, else a plain
// statement. Parse errors resynchronize at the next statement boundary
// rather than aborting the whole compile.
func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.TokenClass):
		c.classDeclaration()
	case c.match(lexer.TokenTrait):
		c.traitDeclaration()
	case c.match(lexer.TokenFun):
		c.funDeclaration()
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	case c.match(lexer.TokenNamespace):
		c.namespaceDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.TokenPrint):
		c.printStatement()
	case c.match(lexer.TokenIf):
		c.ifStatement()
	case c.match(lexer.TokenReturn):
		c.returnStatement()
	case c.match(lexer.TokenWhile):
		c.whileStatement()
	case c.match(lexer.TokenFor):
		c.forStatement()
	case c.match(lexer.TokenSwitch):
		c.switchStatement()
	case c.match(lexer.TokenThrow):
		c.throwStatement()
	case c.match(lexer.TokenTry):
		c.tryStatement()
	case c.match(lexer.TokenBreak):
		c.breakStatement()
	case c.match(lexer.TokenContinue):
		c.continueStatement()
	case c.match(lexer.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

// printStatement compiles `print expr;` as a call to the host-provided
// global function of the same name (spec.md §6's narrow host interface)
// rather than a dedicated opcode.
func (c *Compiler) printStatement() {
	idx := c.identifierConstant("print")
	c.emitOpByte(bytecode.OpGetGlobal, idx)
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	c.emitOpByte(bytecode.OpCall, 1)
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) pushLoop() *LoopContext {
	lc := &LoopContext{enclosing: c.current.loop, scopeDepth: c.current.scopeDepth}
	c.current.loop = lc
	return lc
}

func (c *Compiler) popLoop() {
	c.current.loop = c.current.loop.enclosing
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	lc := c.pushLoop()
	lc.continueTarget = loopStart

	c.consume(lexer.TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)

	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.popLoop()
}

// forStatement compiles a C-style `for (init; cond; incr) body` as a
// desugared while loop, the standard Pratt-compiler technique the
// teacher's control-flow compiling already used for its looping
// constructs.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(lexer.TokenSemicolon):
		// no initializer
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	lc := c.pushLoop()

	exitJump := -1
	if !c.match(lexer.TokenSemicolon) {
		c.expression()
		c.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.check(lexer.TokenRightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")
	}
	lc.continueTarget = loopStart

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.popLoop()
	c.endScope()
}

func (c *Compiler) breakStatement() {
	if c.current.loop == nil {
		c.error("Can't use 'break' outside of a loop.")
		c.consume(lexer.TokenSemicolon, "Expect ';' after 'break'.")
		return
	}
	c.closeLoopLocals(c.current.loop.scopeDepth)
	j := c.emitJump(bytecode.OpJump)
	c.current.loop.breakJumps = append(c.current.loop.breakJumps, j)
	c.consume(lexer.TokenSemicolon, "Expect ';' after 'break'.")
}

func (c *Compiler) continueStatement() {
	if c.current.loop == nil {
		c.error("Can't use 'continue' outside of a loop.")
		c.consume(lexer.TokenSemicolon, "Expect ';' after 'continue'.")
		return
	}
	c.closeLoopLocals(c.current.loop.scopeDepth)
	c.emitLoop(c.current.loop.continueTarget)
	c.consume(lexer.TokenSemicolon, "Expect ';' after 'continue'.")
}

// closeLoopLocals pops (or closes, if captured) locals declared inside
// the loop body before a break/continue jumps past their scope, without
// actually leaving the compiler's scope-tracking state (the loop body's
// own endScope still runs normally along the fall-through path).
func (c *Compiler) closeLoopLocals(targetDepth int) {
	for i := len(c.current.locals) - 1; i >= 0 && c.current.locals[i].Depth > targetDepth; i-- {
		if c.current.locals[i].IsCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
	}
}

func (c *Compiler) returnStatement() {
	if c.match(lexer.TokenSemicolon) {
		c.emitReturn()
		return
	}
	if c.current.functionType == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

// switchStatement compiles `switch (expr) { case v1: ...; case v2: ...;
// default: ... }` with no fall-through between arms — each case body
// ends with an implicit jump to the statement's end, resolving the
// fall-through Open Question per spec.md §9's note and DESIGN.md.
func (c *Compiler) switchStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'switch'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after switch value.")
	c.consume(lexer.TokenLeftBrace, "Expect '{' before switch body.")

	var endJumps []int
	caseCount := 0
	sawDefault := false
	var prevCaseSkip = -1

	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		if c.match(lexer.TokenCase) {
			if caseCount >= bytecode.MaxCases {
				c.error("Too many cases in switch statement.")
			}
			caseCount++
			if prevCaseSkip != -1 {
				endJumps = append(endJumps, c.emitJump(bytecode.OpJump))
				c.patchJump(prevCaseSkip)
				c.emitOp(bytecode.OpPop)
			}
			c.emitOp(bytecode.OpDup)
			c.expression()
			c.consume(lexer.TokenColon, "Expect ':' after case value.")
			c.emitOp(bytecode.OpSwitchEqual)
			prevCaseSkip = c.emitJump(bytecode.OpJumpIfFalse)
			c.emitOp(bytecode.OpPop)
			for !c.check(lexer.TokenCase) && !c.check(lexer.TokenDefault) && !c.check(lexer.TokenRightBrace) {
				c.statement()
			}
		} else if c.match(lexer.TokenDefault) {
			if sawDefault {
				c.error("Can't have more than one 'default' case.")
			}
			sawDefault = true
			if prevCaseSkip != -1 {
				endJumps = append(endJumps, c.emitJump(bytecode.OpJump))
				c.patchJump(prevCaseSkip)
				c.emitOp(bytecode.OpPop)
				prevCaseSkip = -1
			}
			c.consume(lexer.TokenColon, "Expect ':' after 'default'.")
			for !c.check(lexer.TokenCase) && !c.check(lexer.TokenDefault) && !c.check(lexer.TokenRightBrace) {
				c.statement()
			}
		} else {
			c.errorAtCurrent("Expect 'case' or 'default'.")
			break
		}
	}

	if prevCaseSkip != -1 {
		endJumps = append(endJumps, c.emitJump(bytecode.OpJump))
		c.patchJump(prevCaseSkip)
		c.emitOp(bytecode.OpPop)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
	c.emitOp(bytecode.OpPop) // discard the switched-on value
	c.consume(lexer.TokenRightBrace, "Expect '}' after switch body.")
}

func (c *Compiler) throwStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after thrown value.")
	c.emitOp(bytecode.OpThrow)
}

// tryStatement compiles `try { ... } catch (e) { ... } [finally { ... }]`
// around spec.md §4.4's exception-handler stack: PushHandler installs a
// handler whose catch target is the patched jump destination, PopHandler
// removes it once the protected block completes normally.
func (c *Compiler) tryStatement() {
	handlerJump := c.emitJump(bytecode.OpPushHandler)
	c.consume(lexer.TokenLeftBrace, "Expect '{' after 'try'.")
	c.beginScope()
	c.block()
	c.endScope()
	c.emitOp(bytecode.OpPopHandler)
	endJump := c.emitJump(bytecode.OpJump)

	c.patchJump(handlerJump)
	if c.match(lexer.TokenCatch) {
		c.beginScope()
		if c.match(lexer.TokenLeftParen) {
			name := c.parseVariable("Expect exception variable name.")
			c.defineVariable(name)
			c.consume(lexer.TokenRightParen, "Expect ')' after catch variable.")
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.consume(lexer.TokenLeftBrace, "Expect '{' after catch clause.")
		c.block()
		c.endScope()
	} else {
		c.error("Expect 'catch' after 'try' block.")
	}
	c.patchJump(endJump)

	if c.match(lexer.TokenFinally) {
		c.consume(lexer.TokenLeftBrace, "Expect '{' after 'finally'.")
		c.beginScope()
		c.block()
		c.endScope()
	}
}

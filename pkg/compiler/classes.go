package compiler

import (
	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/lexer"
	"github.com/kristofer/lumen/pkg/object"
)

// compileFunctionBody compiles the parameter list and braced body shared
// by named function declarations, anonymous function expressions, and
// methods, then emits the Closure instruction that captures the
// upvalues beginFunction/endFunction resolved (spec.md §4.2).
func (c *Compiler) compileFunctionBody(ft FunctionType, name string) {
	c.beginFunction(ft, name)
	c.beginScope()

	c.consume(lexer.TokenLeftParen, "Expect '(' after function name.")
	if !c.check(lexer.TokenRightParen) {
		for {
			c.current.function.Arity++
			if c.current.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConstant := c.parseVariable("Expect parameter name.")
			c.defineVariable(paramConstant)
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after parameters.")
	c.consume(lexer.TokenLeftBrace, "Expect '{' before function body.")
	c.block()

	fn, id := c.endFunction()
	upvalues := c.pendingUpvalues
	fnConstant := c.makeConstant(object.Obj(id))
	c.emitOp(bytecode.OpClosure)
	c.emitByte(fnConstant)
	for _, uv := range upvalues {
		if uv.IsLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(byte(uv.Index))
	}
	_ = fn
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	name := c.prev.Lexeme
	c.markInitialized()
	c.compileFunctionBody(TypeFunction, name)
	c.defineVariable(global)
}

// method compiles one `name(params) { body }` entry of a class or trait
// body; `init` gets the constructor's implicit-`this`-return treatment
// (spec.md §3.2: Class's init method doubles as the allocator hook).
func (c *Compiler) method() {
	c.consume(lexer.TokenIdentifier, "Expect method name.")
	name := c.prev.Lexeme
	nameConstant := c.identifierConstant(name)

	ft := TypeMethod
	if name == "init" {
		ft = TypeInitializer
	}
	c.compileFunctionBody(ft, name)
	c.emitOp(bytecode.OpMethod)
	c.emitByte(nameConstant)
}

// classDeclaration compiles `class Name [< Super] [with T1, T2] { ... }`
// (spec.md §3.2/§4.4). Traits apply last-wins when more than one trait
// defines the same method name (DESIGN.md's resolution of the spec's
// Open Question, grounded on original_source/src/vm/klass.c), so later
// `with` clauses and methods declared directly on the class shadow
// earlier ones.
func (c *Compiler) classDeclaration() {
	c.consume(lexer.TokenIdentifier, "Expect class name.")
	className := c.prev.Lexeme
	nameConstant := c.identifierConstant(className)
	c.declareVariable(className)

	c.emitOp(bytecode.OpClass)
	c.emitByte(nameConstant)
	c.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: c.currentClass}
	c.currentClass = cc

	if c.match(lexer.TokenLess) {
		c.consume(lexer.TokenIdentifier, "Expect superclass name.")
		if c.prev.Lexeme == className {
			c.error("A class can't inherit from itself.")
		}
		c.variable(false)

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(bytecode.OpInherit)
		cc.hasSuperclass = true
	}

	if c.match(lexer.TokenWith) {
		c.namedVariable(className, false)
		for {
			c.consume(lexer.TokenIdentifier, "Expect trait name.")
			c.variable(false)
			c.emitOp(bytecode.OpTraitUse)
			if !c.match(lexer.TokenComma) {
				break
			}
		}
		c.emitOp(bytecode.OpPop)
	}

	c.namedVariable(className, false)
	c.consume(lexer.TokenLeftBrace, "Expect '{' before class body.")
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.method()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop)

	if cc.hasSuperclass {
		c.endScope()
	}
	c.currentClass = cc.enclosing
}

// traitDeclaration compiles `trait Name { method* }` (spec.md §3.2): a
// trait is a class-shaped object (BehaviorTrait) that is never
// instantiated directly, only merged into a class via `with`.
func (c *Compiler) traitDeclaration() {
	c.consume(lexer.TokenIdentifier, "Expect trait name.")
	traitName := c.prev.Lexeme
	nameConstant := c.identifierConstant(traitName)
	c.declareVariable(traitName)

	c.emitOp(bytecode.OpTrait)
	c.emitByte(nameConstant)
	c.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: c.currentClass}
	c.currentClass = cc

	c.namedVariable(traitName, false)
	c.consume(lexer.TokenLeftBrace, "Expect '{' before trait body.")
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.method()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after trait body.")
	c.emitOp(bytecode.OpPop)

	c.currentClass = cc.enclosing
}

// namespaceDeclaration compiles `namespace Name { decl* }` (spec.md
// §3.2's Namespace kind: short name, fully-qualified name, parent, and a
// string→Value table). Top-level `var`/`fun`/`class` declarations inside
// the braces bind into the namespace's value table via
// SetNamespaceMember rather than the VM's global table, resolved at
// runtime relative to the namespace the interpreter currently has open
// (tracked on its own namespace stack, not the value stack).
func (c *Compiler) namespaceDeclaration() {
	c.consume(lexer.TokenIdentifier, "Expect namespace name.")
	name := c.prev.Lexeme
	nameConstant := c.identifierConstant(name)

	c.emitOp(bytecode.OpNamespace)
	c.emitByte(nameConstant)
	c.namespaceDepth++

	c.consume(lexer.TokenLeftBrace, "Expect '{' before namespace body.")
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after namespace body.")

	c.namespaceDepth--
	c.emitOp(bytecode.OpPopNamespace)
}

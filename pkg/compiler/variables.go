package compiler

import (
	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/lexer"
)

// declareVariable registers name as a new local in the current scope
// (at global scope it returns without doing anything; globals go through
// DefineGlobal instead). Depth is left at -1 ("declared but not initialized")
// until defineVariable marks it ready, per spec.md §4.2 — this is what
// makes `var x = x;` a compile error.
func (c *Compiler) declareVariable(name string) {
	if c.current.scopeDepth == 0 {
		return
	}
	for i := len(c.current.locals) - 1; i >= 0; i-- {
		l := c.current.locals[i]
		if l.Depth != -1 && l.Depth < c.current.scopeDepth {
			break
		}
		if l.Name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.current.locals) >= bytecode.MaxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.current.locals = append(c.current.locals, Local{Name: name, Depth: -1})
}

// parseVariable consumes an identifier, declares it if inside a local
// scope, and returns the identifier-pool index to use with
// DefineGlobal if it turns out to be global.
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(lexer.TokenIdentifier, errMsg)
	name := c.prev.Lexeme
	c.declareVariable(name)
	if c.current.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) markInitialized() {
	if c.current.scopeDepth == 0 {
		return
	}
	c.current.locals[len(c.current.locals)-1].Depth = c.current.scopeDepth
}

func (c *Compiler) defineVariable(globalIdx byte) {
	if c.current.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	if c.namespaceDepth > 0 {
		c.emitOpByte(bytecode.OpSetNamespaceMember, globalIdx)
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, globalIdx)
}

// resolveLocal scans fc's locals top-down for name, per spec.md §4.2.
func (c *Compiler) resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].Name == name {
			if fc.locals[i].Depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue recurses to fc.enclosing; if found there as a local, it
// marks that local captured and registers an upvalue pointing at it;
// otherwise it recurses further and registers an upvalue pointing at the
// enclosing function's own upvalue (spec.md §4.2).
func (c *Compiler) resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fc.enclosing, name); local != -1 {
		fc.enclosing.locals[local].IsCaptured = true
		return c.addUpvalue(fc, local, true)
	}
	if up := c.resolveUpvalue(fc.enclosing, name); up != -1 {
		return c.addUpvalue(fc, up, false)
	}
	return -1
}

func (c *Compiler) addUpvalue(fc *funcCompiler, index int, isLocal bool) int {
	for i, u := range fc.upvalues {
		if u.Index == index && u.IsLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= bytecode.MaxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fc.upvalues = append(fc.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	return len(fc.upvalues) - 1
}

// namedVariable compiles a read or, when canAssign and an `=` follows, a
// write of the variable named by name.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.Opcode
	var arg int

	if idx := c.resolveLocal(c.current, name); idx != -1 {
		getOp, setOp, arg = bytecode.OpGetLocal, bytecode.OpSetLocal, idx
	} else if idx := c.resolveUpvalue(c.current, name); idx != -1 {
		getOp, setOp, arg = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, idx
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

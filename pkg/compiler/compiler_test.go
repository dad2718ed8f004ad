package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/object"
)

func compileOK(t *testing.T, src string) *Result {
	t.Helper()
	heap := object.NewHeap(1<<16, 1<<16, 1<<16, 1<<16, 2)
	c := New(heap)
	result, errs := c.Compile(src)
	require.Empty(t, errs, "compile errors: %v", errs)
	require.NotNil(t, result)
	return result
}

func TestCompilesArithmeticExpression(t *testing.T) {
	result := compileOK(t, "var x = 1 + 2 * 3;")
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpMultiply))
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpAdd))
}

func TestCompilesFunctionDeclaration(t *testing.T) {
	result := compileOK(t, "fun add(a, b) { return a + b; }")
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpClosure))
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpDefineGlobal))
}

func TestCompilesClassWithSuperclass(t *testing.T) {
	result := compileOK(t, `
		class Animal {
			speak() { return "..."; }
		}
		class Dog < Animal {
			speak() { return "woof"; }
		}
	`)
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpClass))
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpInherit))
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpMethod))
}

func TestYieldMarksFunctionAsGenerator(t *testing.T) {
	c := New(object.NewHeap(1<<16, 1<<16, 1<<16, 1<<16, 2))
	result, errs := c.Compile(`
		fun counter() {
			yield 1;
			yield 2;
			return 3;
		}
	`)
	require.Empty(t, errs)

	var genID object.ObjectId
	for _, v := range result.Function.Chunk.Constants {
		if v.IsObject() {
			genID = v.AsObject()
		}
	}
	require.NotZero(t, genID)
	fn, ok := c.heap.Get(genID).(*object.FunctionObject)
	require.True(t, ok)
	assert.True(t, fn.IsGenerator)
}

func TestInvalidSyntaxReportsError(t *testing.T) {
	c := New(object.NewHeap(1<<16, 1<<16, 1<<16, 1<<16, 2))
	_, errs := c.Compile("var x = ;")
	assert.NotEmpty(t, errs)
}

func TestNamespaceMembersCompileAsNamespaceOps(t *testing.T) {
	result := compileOK(t, `
		namespace Geometry {
			var pi = 3;
		}
	`)
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpNamespace))
	assert.Contains(t, result.Function.Chunk.Code, byte(bytecode.OpSetNamespaceMember))
}

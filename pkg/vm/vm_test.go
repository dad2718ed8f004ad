package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kristofer/lumen/pkg/compiler"
	"github.com/kristofer/lumen/pkg/gc"
	"github.com/kristofer/lumen/pkg/object"
)

func newTestVM(t *testing.T) *VM {
	t.Helper()
	heap := object.NewHeap(1<<16, 1<<16, 1<<16, 1<<16, 2)
	collector := gc.New(heap, zap.NewNop())
	return New(heap, collector, zap.NewNop())
}

func run(t *testing.T, machine *VM, src string) object.Value {
	t.Helper()
	c := compiler.New(machine.Heap())
	result, errs := c.Compile(src)
	require.Empty(t, errs, "compile errors: %v", errs)
	v, err := machine.Interpret(result.Function, result.FunctionID)
	require.NoError(t, err)
	return v
}

func TestArithmeticAndVariables(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, "var x = 1 + 2 * 3; return x;")
	require.True(t, v.IsInt())
	assert.EqualValues(t, 7, v.AsInt())
}

func TestClassInstantiationAndMethods(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		class Counter {
			init() { this.n = 0; }
			increment() { this.n = this.n + 1; return this.n; }
		}
		var c = Counter();
		c.increment();
		return c.increment();
	`)
	require.True(t, v.IsInt())
	assert.EqualValues(t, 2, v.AsInt())
}

func TestClosureCapturesUpvalue(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		fun makeAdder(a) {
			return fun (b) { return a + b; };
		}
		var addFive = makeAdder(5);
		return addFive(3);
	`)
	require.True(t, v.IsInt())
	assert.EqualValues(t, 8, v.AsInt())
}

func TestInheritanceDispatchesOverride(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		class Animal {
			speak() { return "..."; }
		}
		class Dog < Animal {
			speak() { return "woof"; }
		}
		return Dog().speak();
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "woof", s)
}

func TestGeneratorYieldsThenReturns(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		fun counter() {
			yield 1;
			yield 2;
			return 3;
		}
		var g = counter();
		var a = g.resume(nil);
		var b = g.resume(nil);
		var c = g.resume(nil);
		var done = g.done();
		return [a, b, c, done];
	`)
	require.True(t, v.IsObject())
	arr, ok := machine.Heap().Get(v.AsObject()).(*object.ArrayObject)
	require.True(t, ok)
	require.Len(t, arr.Elements, 4)
	assert.EqualValues(t, 1, arr.Elements[0].AsInt())
	assert.EqualValues(t, 2, arr.Elements[1].AsInt())
	assert.EqualValues(t, 3, arr.Elements[2].AsInt())
	assert.True(t, arr.Elements[3].AsBool())
}

func TestPromiseResolvesSynchronouslyThroughThen(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		var captured = nil;
		var p = Promise(fun (resolve, reject) {
			resolve(42);
		});
		p.then(fun (value) { captured = value; }, nil);
		return captured;
	`)
	require.True(t, v.IsInt())
	assert.EqualValues(t, 42, v.AsInt())
}

func TestAwaitOnSettledPromiseReturnsValue(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		var p = Promise(fun (resolve, reject) {
			resolve("done");
		});
		return await p;
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "done", s)
}

func TestTryCatchHandlesThrownException(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		var result = "";
		try {
			throw "boom";
		} catch (e) {
			result = "caught";
		}
		return result;
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "caught", s)
}

func TestUserExceptionSubclassCarriesMessage(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		class MyError < Exception {
			init(msg) { this.message = msg; }
		}
		var caught = nil;
		try {
			throw MyError("bad input");
		} catch (e) {
			caught = e.message;
		}
		return caught;
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "bad input", s)
}

func TestUncaughtExceptionSurfacesAsRuntimeError(t *testing.T) {
	machine := newTestVM(t)
	c := compiler.New(machine.Heap())
	result, errs := c.Compile(`
		class MyError < Exception {
			init(msg) { this.message = msg; }
		}
		throw MyError("fatal");
	`)
	require.Empty(t, errs)
	_, err := machine.Interpret(result.Function, result.FunctionID)
	require.Error(t, err)
	rtErr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "fatal", rtErr.Message)
}

func TestUndefinedInvokeInterceptorCatchesMissingMethod(t *testing.T) {
	machine := newTestVM(t)
	v := run(t, machine, `
		class Proxy {
			__undefinedInvoke__(name, args) { return name; }
		}
		return Proxy().whatever(1, 2);
	`)
	s, err := machine.Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, "whatever", s)
}

package vm

import (
	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/object"
)

// arithmetic implements Add/Subtract/Multiply/Divide (spec.md §4.3).
// Add is additionally overloaded for string concatenation; every other
// operator requires both operands to be numbers. Mixed Int/Float
// operands promote to Float, per spec.md §3.1.
func (vm *VM) arithmetic(op bytecode.Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)

	if op == bytecode.OpAdd && isString(vm.heap, a) && isString(vm.heap, b) {
		vm.pop()
		vm.pop()
		result := vm.heap.StringAt(a.AsObject()) + vm.heap.StringAt(b.AsObject())
		vm.push(object.Obj(vm.heap.TakeString(result)))
		return nil
	}

	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()

	if op == bytecode.OpDivide && b.IsNumber() && b.AsFloat64() == 0 {
		return vm.runtimeError("Division by zero.")
	}

	if a.IsInt() && b.IsInt() {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case bytecode.OpAdd:
			vm.push(object.Int(x + y))
		case bytecode.OpSubtract:
			vm.push(object.Int(x - y))
		case bytecode.OpMultiply:
			vm.push(object.Int(x * y))
		case bytecode.OpDivide:
			vm.push(object.Float(float64(x) / float64(y)))
		}
		return nil
	}

	x, y := a.AsFloat64(), b.AsFloat64()
	switch op {
	case bytecode.OpAdd:
		vm.push(object.Float(x + y))
	case bytecode.OpSubtract:
		vm.push(object.Float(x - y))
	case bytecode.OpMultiply:
		vm.push(object.Float(x * y))
	case bytecode.OpDivide:
		vm.push(object.Float(x / y))
	}
	return nil
}

// compare implements Greater/Less (spec.md §4.3); both operands must be
// numbers or both must be strings (lexicographic order).
func (vm *VM) compare(op bytecode.Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)

	if a.IsNumber() && b.IsNumber() {
		vm.pop()
		vm.pop()
		x, y := a.AsFloat64(), b.AsFloat64()
		if op == bytecode.OpGreater {
			vm.push(object.Bool(x > y))
		} else {
			vm.push(object.Bool(x < y))
		}
		return nil
	}

	if isString(vm.heap, a) && isString(vm.heap, b) {
		vm.pop()
		vm.pop()
		x, y := vm.heap.StringAt(a.AsObject()), vm.heap.StringAt(b.AsObject())
		if op == bytecode.OpGreater {
			vm.push(object.Bool(x > y))
		} else {
			vm.push(object.Bool(x < y))
		}
		return nil
	}

	return vm.runtimeError("Operands must be numbers or strings.")
}

func isString(heap *object.Heap, v object.Value) bool {
	if !v.IsObject() {
		return false
	}
	_, ok := heap.Get(v.AsObject()).(*object.StringObject)
	return ok
}

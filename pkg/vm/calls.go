package vm

import (
	"github.com/kristofer/lumen/pkg/object"
)

// callValue dispatches a call to the callee sitting at stack depth
// argCount below the top: a Closure, a bound method, a native function,
// or a Class (construction), per spec.md §4.4's calling convention.
func (vm *VM) callValue(callee object.Value, argCount int) error {
	if !callee.IsObject() {
		return vm.runtimeError("Can only call functions and classes.")
	}
	hdr := vm.heap.Get(callee.AsObject()).Hdr()
	switch hdr.Kind {
	case object.KindClosure:
		closure := vm.heap.Get(callee.AsObject()).(*object.ClosureObject)
		return vm.callClosure(callee.AsObject(), closure, argCount)
	case object.KindNativeFunction:
		fn := vm.heap.Get(callee.AsObject()).(*object.NativeFunctionObject)
		return vm.callNativeFunction(fn, argCount)
	case object.KindBoundMethod:
		bm := vm.heap.Get(callee.AsObject()).(*object.BoundMethodObject)
		return vm.callBoundMethod(bm, argCount)
	case object.KindClass:
		return vm.instantiate(callee.AsObject(), argCount)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// callClosure pushes a new CallFrame for closure, checking arity against
// the underlying FunctionObject (spec.md §8's arity-mismatch runtime
// error) and call-depth against framesMax (stack-overflow error).
func (vm *VM) callClosure(closureID object.ObjectId, closure *object.ClosureObject, argCount int) error {
	fn := vm.heap.Get(closure.Function).(*object.FunctionObject)
	if argCount != fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if fn.IsGenerator {
		return vm.startGenerator(closureID, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = CallFrame{
		Closure: closureID,
		ip:      0,
		slots:   vm.stackTop - argCount - 1,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) callNativeFunction(fn *object.NativeFunctionObject, argCount int) error {
	args := make([]object.Value, argCount)
	copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])
	result, err := fn.Fn(vm, args)
	if err != nil {
		return err
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

func (vm *VM) callNativeMethod(fn object.NativeMethodFn, receiver object.Value, argCount int) error {
	args := make([]object.Value, argCount)
	copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])
	result, err := fn(vm, receiver, args)
	if err != nil {
		return err
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

func (vm *VM) callBoundMethod(bm *object.BoundMethodObject, argCount int) error {
	vm.stack[vm.stackTop-argCount-1] = bm.Receiver
	if bm.Native != nil {
		return vm.callNativeMethod(bm.Native, bm.Receiver, argCount)
	}
	closure := vm.heap.Get(bm.Closure).(*object.ClosureObject)
	return vm.callClosure(bm.Closure, closure, argCount)
}

// instantiate allocates a fresh Instance (spec.md §3.2), then, if the
// class or any ancestor defines `init`, calls it with the constructor
// arguments.
func (vm *VM) instantiate(classID object.ObjectId, argCount int) error {
	class := vm.heap.Get(classID).(*object.ClassObject)
	instID := vm.heap.Allocate(object.NewInstance(classID, class))
	vm.stack[vm.stackTop-argCount-1] = object.Obj(instID)

	if method, ok := object.LookupMethod(vm.heap, classID, vm.initString); ok {
		return vm.callMethod(method, object.Obj(instID), argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
	}
	return nil
}

func (vm *VM) callMethod(method object.Method, receiver object.Value, argCount int) error {
	if method.Native != nil {
		return vm.callNativeMethod(method.Native, receiver, argCount)
	}
	closure := vm.heap.Get(method.Closure).(*object.ClosureObject)
	return vm.callClosure(method.Closure, closure, argCount)
}

// invoke executes the fused `.name(args)` call form spec.md §4.3
// describes: look up the property without allocating an intermediate
// bound method object when it resolves to an ordinary method.
func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsObject() {
		if name == "toString" && argCount == 0 {
			s, err := vm.toDisplayString(receiver)
			if err != nil {
				return err
			}
			vm.pop()
			vm.push(object.Obj(vm.heap.TakeString(s)))
			return nil
		}
		return vm.runtimeError("Only instances have methods.")
	}
	hdr := vm.heap.Get(receiver.AsObject()).Hdr()
	if hdr.Kind != object.KindInstance {
		return vm.invokeBuiltin(receiver, name, argCount)
	}
	instance := vm.heap.Get(receiver.AsObject()).(*object.InstanceObject)
	class := vm.heap.Get(hdr.Class).(*object.ClassObject)

	if idx, ok := class.FieldIndex[name]; ok {
		vm.stack[vm.stackTop-argCount-1] = instance.Fields[idx]
		return vm.callValue(instance.Fields[idx], argCount)
	}
	return vm.invokeFromClass(hdr.Class, name, argCount)
}

func (vm *VM) invokeFromClass(classID object.ObjectId, name string, argCount int) error {
	method, ok := object.LookupMethod(vm.heap, classID, name)
	if !ok {
		return vm.invokeUndefined(classID, name, argCount)
	}
	return vm.callMethod(method, vm.peek(argCount), argCount)
}

// invokeUndefined implements spec.md §4.4's Invoke miss path: "if
// __undefinedInvoke__ exists, it is invoked with (name, argsArray)"
// instead of raising an undefined-property error.
func (vm *VM) invokeUndefined(classID object.ObjectId, name string, argCount int) error {
	class := vm.heap.Get(classID).(*object.ClassObject)
	if class.Interceptors&object.InterceptUndefinedInvoke == 0 {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	method, ok := object.LookupMethod(vm.heap, classID, "__undefinedInvoke__")
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}

	receiver := vm.peek(argCount)
	args := make([]object.Value, argCount)
	copy(args, vm.stack[vm.stackTop-argCount:vm.stackTop])
	argsArray := object.Obj(vm.heap.Allocate(object.NewArray(args)))
	nameVal := object.Obj(vm.heap.CopyString(name))

	result, err := vm.callSyncMethod(method, receiver, []object.Value{nameVal, argsArray})
	if err != nil {
		return err
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

func (vm *VM) bindMethod(classID object.ObjectId, name string, receiver object.Value) (object.Value, bool) {
	method, ok := object.LookupMethod(vm.heap, classID, name)
	if !ok {
		return object.Nil, false
	}
	var bm *object.BoundMethodObject
	if method.Native != nil {
		bm = object.NewNativeBoundMethod(receiver, method.Native)
	} else {
		bm = object.NewBoundMethod(receiver, method.Closure)
	}
	return object.Obj(vm.heap.Allocate(bm)), true
}

func (vm *VM) bindSuperMethod(receiver object.Value, superclassID object.ObjectId, name string) error {
	bound, ok := vm.bindMethod(superclassID, name, receiver)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	vm.push(bound)
	return nil
}

// captureUpvalue returns the open upvalue for stack slot, creating and
// inserting it (kept sorted by slot, nearest-first) the first time a
// closure captures it — matching the teacher's "only one open upvalue
// per shared stack slot" sharing invariant (spec.md §3.2, §8).
func (vm *VM) captureUpvalue(slot int) object.ObjectId {
	for _, id := range vm.openUpvalues {
		up := vm.heap.Get(id).(*object.UpvalueObject)
		if up.Location == slot {
			return id
		}
	}
	up := object.NewOpenUpvalue(slot)
	id := vm.heap.Allocate(up)

	inserted := false
	result := make([]object.ObjectId, 0, len(vm.openUpvalues)+1)
	for _, existing := range vm.openUpvalues {
		existingUp := vm.heap.Get(existing).(*object.UpvalueObject)
		if !inserted && existingUp.Location < slot {
			result = append(result, id)
			inserted = true
		}
		result = append(result, existing)
	}
	if !inserted {
		result = append(result, id)
	}
	vm.openUpvalues = result
	return id
}

// closeUpvalues closes every open upvalue at or above stack slot lowest,
// copying the stack value into the upvalue's own storage so it survives
// the frame popping (spec.md §3.2).
func (vm *VM) closeUpvalues(lowest int) {
	kept := vm.openUpvalues[:0]
	for _, id := range vm.openUpvalues {
		up := vm.heap.Get(id).(*object.UpvalueObject)
		if up.Location >= lowest {
			up.Closed = vm.stack[up.Location]
			up.IsClosed = true
			vm.heap.WriteBarrier(id, valueObjectID(up.Closed))
		} else {
			kept = append(kept, id)
		}
	}
	vm.openUpvalues = kept
}

// callSyncValue invokes callee with args and drives it to completion
// before returning, for use by Go-side call sites that need a Value
// back immediately rather than letting the dispatch loop carry on
// (interceptor hooks, string coercion, generator/promise handler
// invocation). It works for both closures (which grow the frame stack
// and require draining the dispatch loop) and native functions/methods
// (which resolve inline), because both leave exactly one value — the
// result — on the stack when they're done.
func (vm *VM) callSyncValue(callee object.Value, args []object.Value) (object.Value, error) {
	depth := vm.frameCount
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callValue(callee, len(args)); err != nil {
		return object.Nil, err
	}
	if vm.frameCount > depth {
		if _, err := vm.run(depth); err != nil {
			return object.Nil, err
		}
	}
	return vm.pop(), nil
}

// callSyncMethod is callSyncValue's counterpart for an already-resolved
// Method (used when the caller has receiver+method in hand and doesn't
// want to re-look-up by name, e.g. interceptor hooks).
func (vm *VM) callSyncMethod(method object.Method, receiver object.Value, args []object.Value) (object.Value, error) {
	depth := vm.frameCount
	vm.push(receiver)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callMethod(method, receiver, len(args)); err != nil {
		return object.Nil, err
	}
	if vm.frameCount > depth {
		if _, err := vm.run(depth); err != nil {
			return object.Nil, err
		}
	}
	return vm.pop(), nil
}

func (vm *VM) makeClosure(frame *CallFrame) {
	fnConst := vm.readConstant(frame)
	fnID := fnConst.AsObject()
	fn := vm.heap.Get(fnID).(*object.FunctionObject)
	closure := object.NewClosure(fnID, fn.UpvalueCount)
	closureID := vm.heap.Allocate(closure)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte(frame)
		index := int(vm.readByte(frame))
		if isLocal == 1 {
			closure.Upvalues[i] = vm.captureUpvalue(frame.slots + index)
		} else {
			parentClosure := vm.heap.Get(frame.Closure).(*object.ClosureObject)
			closure.Upvalues[i] = parentClosure.Upvalues[index]
		}
	}
	vm.push(object.Obj(closureID))
}

package vm

import "github.com/kristofer/lumen/pkg/object"

// getProperty implements spec.md §4.4's property-access algorithm:
// __beforeGet__ interceptor, then instance field, then method (bound),
// then __undefinedGet__ interceptor, then a runtime error; finally
// __afterGet__ (if set) gets one more chance to transform the result.
func (vm *VM) getProperty(name string) error {
	receiver := vm.peek(0)
	if !receiver.IsObject() {
		return vm.invokeBuiltinGet(receiver, name)
	}
	hdr := vm.heap.Get(receiver.AsObject()).Hdr()
	if hdr.Kind != object.KindInstance {
		return vm.invokeBuiltinGet(receiver, name)
	}
	instance := vm.heap.Get(receiver.AsObject()).(*object.InstanceObject)
	class := vm.heap.Get(hdr.Class).(*object.ClassObject)

	if class.Interceptors&object.InterceptBeforeGet != 0 {
		if method, ok := object.LookupMethod(vm.heap, hdr.Class, "__beforeGet__"); ok {
			nameVal := object.Obj(vm.heap.CopyString(name))
			result, err := vm.callSyncMethod(method, receiver, []object.Value{nameVal})
			if err != nil {
				return err
			}
			if !result.IsNil() {
				vm.pop()
				vm.push(result)
				return vm.runAfterGet(class, hdr.Class, name, receiver)
			}
		}
	}

	if idx, ok := class.FieldIndex[name]; ok {
		vm.pop()
		vm.push(instance.Fields[idx])
		return vm.runAfterGet(class, hdr.Class, name, receiver)
	}

	if method, ok := object.LookupMethod(vm.heap, hdr.Class, name); ok {
		var bound object.Value
		if method.Native != nil {
			bound = object.Obj(vm.heap.Allocate(object.NewNativeBoundMethod(receiver, method.Native)))
		} else {
			bound = object.Obj(vm.heap.Allocate(object.NewBoundMethod(receiver, method.Closure)))
		}
		vm.pop()
		vm.push(bound)
		return vm.runAfterGet(class, hdr.Class, name, receiver)
	}

	if class.Interceptors&object.InterceptUndefinedGet != 0 {
		if method, ok := object.LookupMethod(vm.heap, hdr.Class, "__undefinedGet__"); ok {
			nameVal := object.Obj(vm.heap.CopyString(name))
			result, err := vm.callSyncMethod(method, receiver, []object.Value{nameVal})
			if err != nil {
				return err
			}
			vm.pop()
			vm.push(result)
			return vm.runAfterGet(class, hdr.Class, name, receiver)
		}
	}

	return vm.runtimeError("Undefined property '%s'.", name)
}

func (vm *VM) runAfterGet(class *object.ClassObject, classID object.ObjectId, name string, receiver object.Value) error {
	if class.Interceptors&object.InterceptAfterGet == 0 {
		return nil
	}
	method, ok := object.LookupMethod(vm.heap, classID, "__afterGet__")
	if !ok {
		return nil
	}
	value := vm.peek(0)
	nameVal := object.Obj(vm.heap.CopyString(name))
	result, err := vm.callSyncMethod(method, receiver, []object.Value{value, nameVal})
	if err != nil {
		return err
	}
	vm.pop()
	vm.push(result)
	return nil
}

// setProperty assigns an instance field (spec.md §4.3's SetProperty);
// Lumen has no setter-side interceptor in spec.md's four-bit set, so
// this is a plain field write, auto-vivifying new field slots the way
// the teacher's dynamic object model does for undeclared fields.
func (vm *VM) setProperty(name string) error {
	value := vm.peek(0)
	receiverVal := vm.peek(1)
	if !receiverVal.IsObject() {
		return vm.runtimeError("Only instances have fields.")
	}
	hdr := vm.heap.Get(receiverVal.AsObject()).Hdr()
	if hdr.Kind != object.KindInstance {
		return vm.runtimeError("Only instances have fields.")
	}
	instance := vm.heap.Get(receiverVal.AsObject()).(*object.InstanceObject)
	class := vm.heap.Get(hdr.Class).(*object.ClassObject)

	idx, ok := class.FieldIndex[name]
	if !ok {
		idx = len(class.FieldIndex)
		class.FieldIndex[name] = idx
	}
	for len(instance.Fields) <= idx {
		instance.Fields = append(instance.Fields, object.Nil)
	}
	instance.Fields[idx] = value
	vm.heap.WriteBarrier(receiverVal.AsObject(), valueObjectID(value))

	vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

func valueObjectID(v object.Value) object.ObjectId {
	if v.IsObject() {
		return v.AsObject()
	}
	return object.NilId
}

// getIndex implements Array/Dictionary/String `a[i]` access (spec.md
// §4.3's GetIndex). Any other receiver, a Range included, raises a
// runtime error.
func (vm *VM) getIndex() error {
	index := vm.pop()
	receiver := vm.pop()
	if !receiver.IsObject() {
		return vm.runtimeError("Can't index this value.")
	}
	obj := vm.heap.Get(receiver.AsObject())
	switch o := obj.(type) {
	case *object.ArrayObject:
		if !index.IsInt() {
			return vm.runtimeError("Array index must be an integer.")
		}
		i := int(index.AsInt())
		if i < 0 || i >= len(o.Elements) {
			return vm.runtimeError("Array index out of bounds.")
		}
		vm.push(o.Elements[i])
	case *object.DictionaryObject:
		v, ok := o.Get(index, vm.heap)
		if !ok {
			vm.push(object.Nil)
		} else {
			vm.push(v)
		}
	case *object.StringObject:
		if !index.IsInt() {
			return vm.runtimeError("String index must be an integer.")
		}
		runes := []rune(o.Chars)
		i := int(index.AsInt())
		if i < 0 || i >= len(runes) {
			return vm.runtimeError("String index out of bounds.")
		}
		vm.push(object.Obj(vm.heap.TakeString(string(runes[i]))))
	default:
		return vm.runtimeError("Can't index this value.")
	}
	return nil
}

// setIndex implements `a[i] = v` for Array/Dictionary.
func (vm *VM) setIndex() error {
	value := vm.pop()
	index := vm.pop()
	receiver := vm.pop()
	if !receiver.IsObject() {
		return vm.runtimeError("Can't index this value.")
	}
	switch o := vm.heap.Get(receiver.AsObject()).(type) {
	case *object.ArrayObject:
		if !index.IsInt() {
			return vm.runtimeError("Array index must be an integer.")
		}
		i := int(index.AsInt())
		if i < 0 || i >= len(o.Elements) {
			return vm.runtimeError("Array index out of bounds.")
		}
		o.Elements[i] = value
		vm.heap.WriteBarrier(receiver.AsObject(), valueObjectID(value))
	case *object.DictionaryObject:
		o.Set(index, value, vm.heap)
		vm.heap.WriteBarrier(receiver.AsObject(), valueObjectID(value))
	default:
		return vm.runtimeError("Can't index this value.")
	}
	vm.push(value)
	return nil
}

package vm

import "github.com/kristofer/lumen/pkg/object"

// defineClassLike allocates a fresh Class or Trait shell (spec.md §4.3's
// Class/Trait instructions) named name, gives a Class the root Object
// class as its superclass (copying Object's methods in), allocates its
// metaclass, and pushes it.
func (vm *VM) defineClassLike(name string, behavior object.BehaviorType) {
	class := object.NewClass(behavior)
	class.Name = vm.heap.CopyString(name)
	id := vm.heap.Allocate(class)
	if behavior == object.BehaviorClass && vm.objectClass != object.NilId && id != vm.objectClass {
		class.Super = vm.objectClass
		super := vm.heap.Get(vm.objectClass).(*object.ClassObject)
		object.Inherit(class, super)
	}
	class.Header.Class = vm.metaclassFor(id, class)
	vm.classes[name] = id
	vm.push(object.Obj(id))
}

// metaclassFor allocates class's metaclass the first time it's needed,
// per spec.md §3.2 ("Every Class has its own Class (its metaclass)
// reachable via the header klass pointer"). Metaclasses are structurally
// classes themselves (BehaviorMetaclass) but carry no methods of their
// own in this implementation; they exist so Header.Class is always
// populated for dispatch uniformity.
func (vm *VM) metaclassFor(classID object.ObjectId, class *object.ClassObject) object.ObjectId {
	meta := object.NewClass(object.BehaviorMetaclass)
	meta.Name = class.Name
	return vm.heap.Allocate(meta)
}

// inherit implements spec.md §4.3's Inherit instruction: peek(1) is the
// superclass, peek(0) the subclass just defined by Class; only the
// subclass is popped, leaving the superclass bound to the "super" local
// the compiler declared around this call.
func (vm *VM) inherit() error {
	superVal := vm.peek(1)
	subVal := vm.peek(0)
	if !superVal.IsObject() {
		return vm.runtimeError("Superclass must be a class.")
	}
	super, ok := vm.heap.Get(superVal.AsObject()).(*object.ClassObject)
	if !ok {
		return vm.runtimeError("Superclass must be a class.")
	}
	sub := vm.heap.Get(subVal.AsObject()).(*object.ClassObject)
	sub.Super = superVal.AsObject()
	object.Inherit(sub, super)
	vm.pop()
	return nil
}

// traitUse implements OpTraitUse: peek(1) is the class under
// construction, peek(0) the trait being merged in; only the trait value
// is popped so `with T1, T2` can chain without re-fetching the class.
func (vm *VM) traitUse() {
	traitVal := vm.pop()
	classVal := vm.peek(0)
	trait := vm.heap.Get(traitVal.AsObject()).(*object.ClassObject)
	class := vm.heap.Get(classVal.AsObject()).(*object.ClassObject)
	object.ApplyTrait(class, trait)
}

// defineMethod implements OpMethod: pops the just-compiled closure and
// attaches it under name to the class sitting at peek(0). A method named
// after one of the four interceptor hooks (spec.md §4.4,
// original_source/src/vm/interceptor.h) also flips the matching bit on
// Class.Interceptors, the flag pkg/vm/properties.go and calls.go's
// invokeUndefined check before bothering to look the hook method up.
func (vm *VM) defineMethod(name string) {
	closureVal := vm.pop()
	class := vm.heap.Get(vm.peek(0).AsObject()).(*object.ClassObject)
	class.Methods[name] = object.Method{Closure: closureVal.AsObject()}

	switch name {
	case "__beforeGet__":
		class.Interceptors |= object.InterceptBeforeGet
	case "__afterGet__":
		class.Interceptors |= object.InterceptAfterGet
	case "__undefinedGet__":
		class.Interceptors |= object.InterceptUndefinedGet
	case "__undefinedInvoke__":
		class.Interceptors |= object.InterceptUndefinedInvoke
	}
}

package vm

import "github.com/kristofer/lumen/pkg/object"

// The methods in this file satisfy gc.RootProvider (spec.md §4.5's
// mark-phase root set), letting pkg/gc enumerate the mutator's roots
// without importing pkg/vm.

// StackValues returns every live Value between the stack base and
// stackTop, followed by every value bound in the globals table; the
// collector marks both alike, so a value held only by a global survives.
func (vm *VM) StackValues() []object.Value {
	values := make([]object.Value, 0, vm.stackTop+len(vm.globals))
	values = append(values, vm.stack[:vm.stackTop]...)
	for _, v := range vm.globals {
		values = append(values, v)
	}
	return values
}

// FrameClosures returns the Closure every live CallFrame is running.
func (vm *VM) FrameClosures() []object.ObjectId {
	ids := make([]object.ObjectId, vm.frameCount)
	for i := 0; i < vm.frameCount; i++ {
		ids[i] = vm.frames[i].Closure
	}
	return ids
}

// OpenUpvalues returns the VM's open-upvalue list.
func (vm *VM) OpenUpvalues() []object.ObjectId {
	return vm.openUpvalues
}

// RunningGenerators walks the currently executing generator's Outer
// chain, returning every generator on it (spec.md §4.5: "every generator
// on the running chain").
func (vm *VM) RunningGenerators() []object.ObjectId {
	var ids []object.ObjectId
	for id := vm.runningGenerator; id != object.NilId; {
		ids = append(ids, id)
		gen, ok := vm.heap.Get(id).(*object.GeneratorObject)
		if !ok {
			break
		}
		id = gen.Outer
	}
	return ids
}

// ClassIDs returns the class registry table.
func (vm *VM) ClassIDs() []object.ObjectId {
	ids := make([]object.ObjectId, 0, len(vm.classes))
	for _, id := range vm.classes {
		ids = append(ids, id)
	}
	return ids
}

// NamespaceIDs returns the namespace registry table.
func (vm *VM) NamespaceIDs() []object.ObjectId {
	ids := make([]object.ObjectId, 0, len(vm.namespaces))
	for _, id := range vm.namespaces {
		ids = append(ids, id)
	}
	return ids
}

// ModuleIDs returns the loaded-module table. Lumen's module loader
// (spec.md §6) is out of this VM's scope (single compiled program per
// Interpret call), so there is currently nothing to root here.
func (vm *VM) ModuleIDs() []object.ObjectId { return nil }

// CompilingFunctionIDs returns the in-progress Functions of any compiler
// chain active across a GC cycle. Lumen compiles a whole program before
// handing it to the VM (spec.md §4.2's single-pass model keeps compiler
// and interpreter phases disjoint), so no compiler is ever live during a
// collection this VM triggers.
func (vm *VM) CompilingFunctionIDs() []object.ObjectId { return nil }

// InitStringID returns the interned "init" string's object id so the
// intern table itself doesn't get swept out from under constructor
// dispatch.
func (vm *VM) InitStringID() object.ObjectId {
	return vm.heap.CopyString(vm.initString)
}

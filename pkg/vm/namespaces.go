package vm

import "github.com/kristofer/lumen/pkg/object"

// openNamespace implements OpNamespace (spec.md §3.3's Namespace kind):
// find-or-create a namespace named name, nested under whichever
// namespace is currently open (or a root namespace if none is), and
// push it both as the active scope (vm.namespaceStack) and as an
// ordinary value so top-level code referencing the namespace by name
// resolves it like any other global.
func (vm *VM) openNamespace(name string) {
	var parent object.ObjectId
	var prefix string
	if n := len(vm.namespaceStack); n > 0 {
		parent = vm.namespaceStack[n-1]
		parentNs := vm.heap.Get(parent).(*object.NamespaceObject)
		prefix = parentNs.FullyQualified + "."
	}
	fqn := prefix + name

	id, ok := vm.namespaces[fqn]
	if !ok {
		ns := object.NewNamespace(name, fqn, parent)
		id = vm.heap.Allocate(ns)
		vm.namespaces[fqn] = id
	}
	vm.namespaceStack = append(vm.namespaceStack, id)
	vm.globals[name] = object.Obj(id)
}

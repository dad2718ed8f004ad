package object

// Inherit copies super's methods into sub's method table (spec.md §4.4's
// Inherit instruction) and forwards super's trait list. Methods declared
// explicitly on sub later overwrite these entries (the compiler emits
// Method instructions for the subclass's own methods after Inherit runs).
func Inherit(sub, super *ClassObject) {
	for name, m := range super.Methods {
		sub.Methods[name] = m
	}
	sub.Interceptors |= super.Interceptors
	sub.Traits = append(sub.Traits, super.Traits...)
	for name, idx := range super.FieldIndex {
		if _, exists := sub.FieldIndex[name]; !exists {
			sub.FieldIndex[name] = idx
		}
	}
	if len(super.FieldDefault) > 0 {
		sub.FieldDefault = append(sub.FieldDefault, super.FieldDefault...)
	}
}

// ApplyTrait unions a trait's methods into class. Per SPEC_FULL.md §4
// (resolving spec.md §9's open question against
// original_source/src/vm/klass.c), conflicts resolve **last-wins**: a
// trait applied later overwrites methods a previously-applied trait (or
// inheritance) contributed, and the class's own explicitly-declared
// methods — compiled after every `with Trait` clause — win over all
// traits.
func ApplyTrait(class, trait *ClassObject) {
	for name, m := range trait.Methods {
		class.Methods[name] = m
	}
	class.Interceptors |= trait.Interceptors
	class.Traits = append(class.Traits, trait.Traits...)
}

// LookupMethod finds name on class, per spec.md §8 invariant 6: instance
// fields are checked by the caller first; this only walks the method/
// ancestor chain. Returns (method, true) on success, (Method{}, false)
// otherwise.
func LookupMethod(heap *Heap, classID ObjectId, name string) (Method, bool) {
	cur := classID
	for cur != NilId {
		class, ok := heap.Get(cur).(*ClassObject)
		if !ok {
			return Method{}, false
		}
		if m, ok := class.Methods[name]; ok {
			return m, true
		}
		cur = class.Super
	}
	return Method{}, false
}

// IsInstanceOf reports whether instance's class is class or a descendant
// of class, walking the Super chain. Used by the root class's isKindOf
// native.
func IsInstanceOf(heap *Heap, classID, targetClassID ObjectId) bool {
	cur := classID
	for cur != NilId {
		if cur == targetClassID {
			return true
		}
		class, ok := heap.Get(cur).(*ClassObject)
		if !ok {
			return false
		}
		cur = class.Super
	}
	return false
}

// ClassName returns a class's name string, or "" if unresolved.
func ClassName(heap *Heap, classID ObjectId) string {
	class, ok := heap.Get(classID).(*ClassObject)
	if !ok {
		return ""
	}
	return heap.StringAt(class.Name)
}

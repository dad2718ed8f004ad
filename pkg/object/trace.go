package object

// Trace visits every child reference of o, per spec.md §4.5's tracing
// rule ("closures mark function + upvalues; classes mark name,
// superclass, metaclass, namespace, traits, indexes, fields, methods;
// instances mark class and fields; dictionaries mark each entry; and so
// on"). markID is called for every child ObjectId, markValue for every
// child Value (which may itself wrap an ObjectId); the caller (pkg/gc)
// owns what "marking" means and just supplies these callbacks, keeping
// the kind-specific traversal knowledge here next to the kind
// definitions themselves rather than duplicated in the collector.
func Trace(o Object, markID func(ObjectId), markValue func(Value)) {
	switch v := o.(type) {
	case *StringObject:
		// No children: strings are leaves.

	case *FunctionObject:
		markID(v.Name)
		for _, c := range v.Chunk.Constants {
			markValue(c)
		}

	case *ClosureObject:
		markID(v.Function)
		for _, u := range v.Upvalues {
			markID(u)
		}

	case *UpvalueObject:
		if v.IsClosed {
			markValue(v.Closed)
		}

	case *ClassObject:
		markID(v.Name)
		markID(v.Super)
		for _, t := range v.Traits {
			markID(t)
		}
		for _, m := range v.Methods {
			if m.Closure != NilId {
				markID(m.Closure)
			}
		}
		for _, fv := range v.FieldDefault {
			markValue(fv)
		}

	case *InstanceObject:
		for _, fv := range v.Fields {
			markValue(fv)
		}

	case *BoundMethodObject:
		markValue(v.Receiver)
		markID(v.Closure)

	case *NativeFunctionObject:
		// No GC children.

	case *NativeMethodObject:
		markID(v.Owner)

	case *ArrayObject:
		for _, e := range v.Elements {
			markValue(e)
		}

	case *DictionaryObject:
		v.Each(func(k, val Value) {
			markValue(k)
			markValue(val)
		})

	case *RangeObject:
		// No GC children: bounds are plain int32s.

	case *NamespaceObject:
		markID(v.Parent)
		for _, val := range v.Values {
			markValue(val)
		}

	case *ModuleObject:
		markID(v.TopLevel)
		for _, val := range v.ValFields {
			markValue(val)
		}
		for _, val := range v.VarFields {
			markValue(val)
		}

	case *GeneratorObject:
		markID(v.Outer)
		markID(v.Inner)
		markValue(v.Latest)
		markValue(v.Received)
		markID(v.Frame.Closure)
		for _, s := range v.Frame.Slots {
			markValue(s)
		}
		for _, u := range v.Frame.OpenUpvalues {
			markID(u)
		}

	case *PromiseObject:
		markValue(v.Value)
		markID(v.Executor)
		for _, h := range v.Handlers {
			markID(h.OnFulfilled)
			markID(h.OnRejected)
		}

	case *ExceptionObject:
		for _, fv := range v.Fields {
			markValue(fv)
		}
	}

	// Every object also marks its class (the header's metaclass pointer),
	// matching spec.md §3.2: "Every Class has its own Class ... reachable
	// via the header klass pointer."
	if o.Hdr().Class != NilId {
		markID(o.Hdr().Class)
	}
}

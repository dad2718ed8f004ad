package object

// NewFunction allocates an empty FunctionObject; the compiler fills in
// Arity/UpvalueCount/Chunk as it compiles the body.
func NewFunction() *FunctionObject {
	return &FunctionObject{Header: Header{Kind: KindFunction}, Chunk: &Chunk{}}
}

// NewClosure allocates a Closure over fn with nUpvalues empty upvalue
// slots, matching spec.md §4.4's Closure instruction, which reads
// (isLocal, index) pairs one at a time and fills this array in.
func NewClosure(fn ObjectId, nUpvalues int) *ClosureObject {
	return &ClosureObject{
		Header:   Header{Kind: KindClosure},
		Function: fn,
		Upvalues: make([]ObjectId, nUpvalues),
	}
}

// NewOpenUpvalue allocates an upvalue pointing at a live stack slot.
func NewOpenUpvalue(stackSlot int) *UpvalueObject {
	return &UpvalueObject{Header: Header{Kind: KindUpvalue}, Location: stackSlot}
}

// NewClass allocates a class/trait/metaclass shell; callers finish wiring
// Super/Traits/Methods/FieldIndex.
func NewClass(behavior BehaviorType) *ClassObject {
	return &ClassObject{
		Header:     Header{Kind: KindClass},
		Super:      NilId,
		Methods:    make(map[string]Method),
		FieldIndex: make(map[string]int),
		Behavior:   behavior,
	}
}

// NewInstance allocates an instance of class, copying its field defaults.
func NewInstance(class ObjectId, classObj *ClassObject) *InstanceObject {
	fields := make([]Value, len(classObj.FieldDefault))
	copy(fields, classObj.FieldDefault)
	return &InstanceObject{
		Header: Header{Kind: KindInstance, Class: class},
		Fields: fields,
	}
}

// NewBoundMethod couples receiver with a compiled closure.
func NewBoundMethod(receiver Value, closure ObjectId) *BoundMethodObject {
	return &BoundMethodObject{Header: Header{Kind: KindBoundMethod}, Receiver: receiver, Closure: closure}
}

// NewNativeBoundMethod couples receiver with a native Go method.
func NewNativeBoundMethod(receiver Value, fn NativeMethodFn) *BoundMethodObject {
	return &BoundMethodObject{Header: Header{Kind: KindBoundMethod}, Receiver: receiver, Native: fn}
}

// NewArray allocates an Array with the given initial elements (copied).
func NewArray(elements []Value) *ArrayObject {
	els := make([]Value, len(elements))
	copy(els, elements)
	return &ArrayObject{Header: Header{Kind: KindArray}, Elements: els}
}

// NewRange allocates a Range literal.
func NewRange(from, to int32, inclusive bool) *RangeObject {
	return &RangeObject{Header: Header{Kind: KindRange}, From: from, To: to, Inclusive: inclusive}
}

// NewNamespace allocates a Namespace nested under parent (NilId for a
// root namespace).
func NewNamespace(short, fqn string, parent ObjectId) *NamespaceObject {
	return &NamespaceObject{
		Header:         Header{Kind: KindNamespace},
		ShortName:      short,
		FullyQualified: fqn,
		Parent:         parent,
		Values:         make(map[string]Value),
	}
}

// NewModule allocates a Module shell for a compiled source file.
func NewModule(path, runID string, topLevel ObjectId) *ModuleObject {
	return &ModuleObject{
		Header:    Header{Kind: KindModule},
		Path:      path,
		RunID:     runID,
		TopLevel:  topLevel,
		ValIndex:  make(map[string]int),
		VarIndex:  make(map[string]int),
	}
}

// NewGenerator allocates a Generator in the Start state.
func NewGenerator(frame FrameSnapshot, outer ObjectId) *GeneratorObject {
	return &GeneratorObject{
		Header: Header{Kind: KindGenerator},
		Frame:  frame,
		Outer:  outer,
		Inner:  NilId,
		Latest: Nil,
		State:  GenStart,
	}
}

// NewPromise allocates a pending Promise.
func NewPromise(executor ObjectId) *PromiseObject {
	return &PromiseObject{
		Header:   Header{Kind: KindPromise},
		State:    PromisePending,
		Value:    Nil,
		Executor: executor,
	}
}

// NewException allocates an Exception carrying message and a captured
// call-stack trace (spec.md §7).
func NewException(message string, stackTrace []string) *ExceptionObject {
	return &ExceptionObject{
		Header:     Header{Kind: KindException},
		Message:    message,
		StackTrace: stackTrace,
	}
}

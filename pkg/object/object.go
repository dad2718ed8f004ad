package object

// ObjectId addresses a heap object by its index into a Heap's arena. It
// stands in for a raw pointer (spec.md §9): every field that would have
// been `*Obj` in a pointer-based host is an ObjectId here.
type ObjectId uint32

// NilId is never a valid allocated object; zero-value ObjectId fields
// (e.g. an instance's not-yet-set superclass) read as "no object".
const NilId ObjectId = 0

// Header is embedded in every concrete object type and implements the
// common fields spec.md §3.2 requires of every heap object.
type Header struct {
	Kind       Kind
	Class      ObjectId // the object's class, for method dispatch
	IsMarked   bool
	Generation Generation
	Next       ObjectId // intrusive list within this generation
}

// Object is implemented by every concrete heap object type.
type Object interface {
	Hdr() *Header
}

func (h *Header) Hdr() *Header { return h }

// StringObject is immutable and interned: every live string appears
// exactly once in the VM's intern table (spec.md §3.3, invariant 1).
type StringObject struct {
	Header
	Chars string
	Hash  uint32
}

// FunctionObject is a compiled, not-yet-closed-over function body.
type FunctionObject struct {
	Header
	Name         ObjectId // *StringObject, or NilId for the top-level script
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	IsInitializer bool
	IsGenerator  bool
}

// UpvalueRef describes one upvalue a Closure captures, as emitted by the
// compiler's Closure instruction (spec.md §4.2): IsLocal selects whether
// Index refers to a slot in the *enclosing* frame or an upvalue already
// held by the enclosing closure.
type UpvalueRef struct {
	IsLocal bool
	Index   int
}

// ClosureObject pairs a FunctionObject with its captured upvalues.
type ClosureObject struct {
	Header
	Function ObjectId
	Upvalues []ObjectId // []*UpvalueObject, fixed length == FunctionObject.UpvalueCount
}

// UpvalueObject is open while its defining frame is live (Location points
// into the VM stack) and closed after the frame returns (Closed holds the
// value moved out of the stack). Open upvalues are threaded in a
// per-VM list sorted by descending stack address (spec.md §4.4, §8
// invariant 5).
type UpvalueObject struct {
	Header
	Location int // stack slot index, meaningful only while open
	Closed   Value
	IsClosed bool
	NextOpen ObjectId // next open upvalue in the VM's open-upvalue list
}

// Method is one entry of a Class's method table.
type Method struct {
	Closure ObjectId // *ClosureObject, or NilId if Native is set
	Native  NativeMethodFn
}

// NativeMethodFn is the Go-level signature for a method implemented
// natively rather than compiled from Lumen source (spec.md §6).
type NativeMethodFn func(vm VMBridge, receiver Value, args []Value) (Value, error)

// NativeFunctionFn is the Go-level signature for a free function
// implemented natively (spec.md §6).
type NativeFunctionFn func(vm VMBridge, args []Value) (Value, error)

// VMBridge is the narrow surface pkg/object's native function/method
// values need back into the VM (push/pop/alloc), avoiding a pkg/object ->
// pkg/vm import cycle. pkg/vm implements this interface on *VM.
type VMBridge interface {
	Heap() *Heap
	ThrowError(class, format string, args ...interface{}) error
}

// ClassObject is a class, metaclass, or trait (BehaviorType distinguishes
// them). Every Class has its own Class reachable via Header.Class — its
// metaclass — used to dispatch static/class-side methods.
type ClassObject struct {
	Header
	Name         ObjectId // *StringObject
	Super        ObjectId // NilId for the root Object class
	Traits       []ObjectId
	Methods      map[string]Method
	FieldIndex   map[string]int
	FieldDefault []Value
	Behavior     BehaviorType
	Interceptors uint8
	IsNative     bool
}

// InstanceObject is an instance of a ClassObject; Fields is indexed by
// the class's FieldIndex map.
type InstanceObject struct {
	Header
	Fields []Value
}

// BoundMethodObject couples a receiver with the closure that implements
// the method it was looked up through.
type BoundMethodObject struct {
	Header
	Receiver Value
	Closure  ObjectId // *ClosureObject, or NilId if Native is set
	Native   NativeMethodFn
}

// NativeFunctionObject wraps a Go function exposed as a Lumen callable.
type NativeFunctionObject struct {
	Header
	Name string
	Fn   NativeFunctionFn
}

// NativeMethodObject additionally records its owning class for
// diagnostics (spec.md §3.3).
type NativeMethodObject struct {
	Header
	Name  string
	Owner ObjectId // *ClassObject
	Fn    NativeMethodFn
}

// ArrayObject is a growable, 0-indexed sequence of Values.
type ArrayObject struct {
	Header
	Elements []Value
}

// entry is one slot of a Dictionary's open-addressed table.
type entry struct {
	key     Value
	value   Value
	present bool
}

// DictionaryObject is an open-addressed hash table keyed by Value,
// using Undefined as the tombstone sentinel for deleted slots
// (spec.md §3.3).
type DictionaryObject struct {
	Header
	entries []entry
	count   int // live entries, excluding tombstones
}

// RangeObject represents an inclusive or exclusive numeric range literal.
type RangeObject struct {
	Header
	From, To  int32
	Inclusive bool
}

// NamespaceObject groups globals hierarchically (spec.md §3.3).
type NamespaceObject struct {
	Header
	ShortName      string
	FullyQualified string
	Parent         ObjectId
	Values         map[string]Value
}

// ModuleObject is a compiled source file: its own top-level closure plus
// separate (name -> slot) maps for `val` (immutable) and `var` (mutable)
// bindings.
type ModuleObject struct {
	Header
	Path        string
	RunID       string // debug-only uuid stamped at load time
	TopLevel    ObjectId // *ClosureObject
	ValIndex    map[string]int
	ValFields   []Value
	VarIndex    map[string]int
	VarFields   []Value
}

// FrameSnapshot is a suspended CallFrame, captured whole so a Generator
// can resume exactly where it yielded (spec.md §4.4, §9).
type FrameSnapshot struct {
	Closure     ObjectId
	IP          int
	Slots       []Value
	OpenUpvalues []ObjectId
}

// GeneratorObject holds a suspended activation plus the bookkeeping
// needed to resume, nest, and terminate it (spec.md §3.3).
type GeneratorObject struct {
	Header
	Frame   FrameSnapshot
	Outer   ObjectId
	Inner   ObjectId
	Latest  Value
	Received Value
	State   GeneratorState
}

// PromiseObject tracks a pending/fulfilled/rejected async value plus its
// registered handlers, invoked in registration order (spec.md §5).
type PromiseObject struct {
	Header
	State      PromiseState
	Value      Value
	Executor   ObjectId // *ClosureObject, may be NilId
	Handlers   []PromiseHandler
}

// PromiseHandler is one registered (onFulfilled, onRejected) pair.
type PromiseHandler struct {
	OnFulfilled ObjectId
	OnRejected  ObjectId
}

// ExceptionObject is the exception the VM itself raises (runtimeError):
// a message and a captured stack trace, with no class attached. Exceptions
// user code throws are ordinary Instances of the built-in Exception class
// or a subclass of it, not this kind.
type ExceptionObject struct {
	Header
	Message    string
	StackTrace []string
	Fields     []Value
}

// Package object implements the Lumen value and object model: a tagged
// Value union over an arena-backed heap of garbage-collected objects.
//
// Values are a small tagged struct (see value.go) rather than a NaN-boxed
// 64-bit word. spec.md §3.1 allows either encoding so long as it stays
// invisible behind the is_*/as_* predicate API; a tagged struct is the
// simpler, portable choice in Go, which has no safe way to steal bit
// patterns out of a float64 without `unsafe`.
//
// Objects do not live behind Go pointers. Per the arena-plus-index design
// noted in spec.md §9, every heap object is addressed by an ObjectId that
// indexes into a Heap's arena slice. The GC (pkg/gc) walks the arena using
// each generation's intrusive linked list (Header.Next) rather than
// tracing real pointers; this is what lets pkg/gc implement the
// generational promote/sweep algorithm explicitly instead of deferring
// to Go's own collector.
package object

// Kind identifies the concrete shape of a heap object.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindNativeFunction
	KindNativeMethod
	KindArray
	KindDictionary
	KindRange
	KindNamespace
	KindModule
	KindGenerator
	KindPromise
	KindException
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindUpvalue:
		return "Upvalue"
	case KindClass:
		return "Class"
	case KindInstance:
		return "Instance"
	case KindBoundMethod:
		return "BoundMethod"
	case KindNativeFunction:
		return "NativeFunction"
	case KindNativeMethod:
		return "NativeMethod"
	case KindArray:
		return "Array"
	case KindDictionary:
		return "Dictionary"
	case KindRange:
		return "Range"
	case KindNamespace:
		return "Namespace"
	case KindModule:
		return "Module"
	case KindGenerator:
		return "Generator"
	case KindPromise:
		return "Promise"
	case KindException:
		return "Exception"
	default:
		return "Unknown"
	}
}

// BehaviorType distinguishes the three flavors of Class object (spec.md §3.3).
type BehaviorType uint8

const (
	BehaviorClass BehaviorType = iota
	BehaviorMetaclass
	BehaviorTrait
)

// Generation is the GC bucket an object currently resides in (spec.md §4.5).
type Generation uint8

const (
	Eden Generation = iota
	Young
	Old
	Permanent
	numGenerations
)

func (g Generation) String() string {
	switch g {
	case Eden:
		return "eden"
	case Young:
		return "young"
	case Old:
		return "old"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Interceptor bits, stored on Class (spec.md §4.4, original_source/src/vm/interceptor.h).
const (
	InterceptBeforeGet uint8 = 1 << iota
	InterceptAfterGet
	InterceptUndefinedGet
	InterceptUndefinedInvoke
)

// GeneratorState enumerates a Generator's lifecycle (spec.md §3.3).
type GeneratorState uint8

const (
	GenStart GeneratorState = iota
	GenYield
	GenResume
	GenReturn
	GenThrow
	GenError
)

// PromiseState enumerates a Promise's lifecycle (spec.md §3.3).
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

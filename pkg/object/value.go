package object

import "math"

// valueKind tags which field of Value is live. It is a private encoding
// detail; callers only ever use the predicate/converter API below, so this
// type could be swapped for a NaN-boxed uint64 without touching a caller.
type valueKind uint8

const (
	vkNil valueKind = iota
	vkUndefined
	vkBool
	vkInt
	vkFloat
	vkObject
)

// Value is Lumen's tagged union over Nil, Undefined, Bool, Int, Float, and
// Object-reference (spec.md §3.1). Int is kept distinct from Float so that
// integer identity survives hashing and equality exactly as spec.md
// requires ("Int is signed 32-bit; distinct from Float to preserve integer
// identity for hashing").
type Value struct {
	kind valueKind
	b    bool
	i    int32
	f    float64
	obj  ObjectId
}

var (
	Nil       = Value{kind: vkNil}
	Undefined = Value{kind: vkUndefined}
	True      = Value{kind: vkBool, b: true}
	False     = Value{kind: vkBool, b: false}
)

func Bool(v bool) Value {
	if v {
		return True
	}
	return False
}

func Int(i int32) Value    { return Value{kind: vkInt, i: i} }
func Float(f float64) Value { return Value{kind: vkFloat, f: f} }
func Obj(id ObjectId) Value { return Value{kind: vkObject, obj: id} }

func (v Value) IsNil() bool       { return v.kind == vkNil }
func (v Value) IsUndefined() bool { return v.kind == vkUndefined }
func (v Value) IsBool() bool      { return v.kind == vkBool }
func (v Value) IsInt() bool       { return v.kind == vkInt }
func (v Value) IsFloat() bool     { return v.kind == vkFloat }
func (v Value) IsNumber() bool    { return v.kind == vkInt || v.kind == vkFloat }
func (v Value) IsObject() bool    { return v.kind == vkObject }

// IsFalsey follows the common Lox convention: nil and false are falsey,
// everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.IsNil() || (v.IsBool() && !v.b)
}

func (v Value) AsBool() bool       { return v.b }
func (v Value) AsInt() int32       { return v.i }
func (v Value) AsFloat() float64   { return v.f }
func (v Value) AsObject() ObjectId { return v.obj }

// AsFloat64 returns the numeric value of an Int or Float as a float64,
// for arithmetic sites that have already decided to promote.
func (v Value) AsFloat64() float64 {
	if v.kind == vkInt {
		return float64(v.i)
	}
	return v.f
}

// ValuesEqual implements spec.md §3.1's equality law: values of equal
// numeric magnitude compare equal across Int/Float; otherwise encodings
// must be identical. Object equality is ObjectId equality, which for
// interned strings is pointer equality because every live string appears
// exactly once in the intern table (invariant 1, spec.md §8).
func ValuesEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case vkNil, vkUndefined:
		return true
	case vkBool:
		return a.b == b.b
	case vkObject:
		return a.obj == b.obj
	}
	return false
}

// HashValue produces a hash consistent with ValuesEqual for use as a
// Dictionary key (spec.md §8 invariant 2): equal values must hash equal.
// Strings hash by their precomputed FNV-1a hash (so hashing never touches
// the backing bytes twice), everything else by a cheap structural mix.
func HashValue(v Value, heap *Heap) uint32 {
	switch v.kind {
	case vkNil:
		return 0x9e3779b1
	case vkUndefined:
		return 0x9e3779b2
	case vkBool:
		if v.b {
			return 0x9e3779b3
		}
		return 0x9e3779b4
	case vkInt, vkFloat:
		bits := math.Float64bits(v.AsFloat64())
		return uint32(bits) ^ uint32(bits>>32)
	case vkObject:
		if s, ok := heap.Get(v.obj).(*StringObject); ok {
			return s.Hash
		}
		return uint32(v.obj)
	}
	return 0
}

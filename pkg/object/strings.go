package object

// fnv1a computes the 32-bit FNV-1a hash of s, per spec.md §2's table
// ("FNV-1a hashing") and §4.1.
func fnv1a(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// CopyString interns a substring of a source buffer, returning the same
// ObjectId for any two byte-identical strings (spec.md §8 invariant 1).
// This is the allocator entry point used by the scanner and compiler for
// string/identifier literals, where the bytes still live inside the
// source buffer and must be copied out.
func (h *Heap) CopyString(s string) ObjectId {
	if id, ok := h.InternTable[s]; ok {
		return id
	}
	return h.internNew(s)
}

// TakeString interns a string the caller already owns outright (e.g. the
// result of concatenation), avoiding a redundant copy when it turns out
// not to be a duplicate.
func (h *Heap) TakeString(s string) ObjectId {
	if id, ok := h.InternTable[s]; ok {
		return id
	}
	return h.internNew(s)
}

func (h *Heap) internNew(s string) ObjectId {
	str := &StringObject{
		Header: Header{Kind: KindString},
		Chars:  s,
		Hash:   fnv1a(s),
	}
	id := h.Allocate(str)
	h.InternTable[s] = id
	return id
}

// StringAt is a convenience accessor used throughout the VM/compiler.
func (h *Heap) StringAt(id ObjectId) string {
	if s, ok := h.Get(id).(*StringObject); ok {
		return s.Chars
	}
	return ""
}

// UninternUnmarked implements spec.md §4.5's pre-sweep intern-table
// cleanup: delete entries whose key is unmarked and resides in generation
// g (a generation about to be swept), plus entries whose string is
// already freed. Strings in other generations are left alone; when g is
// Permanent itself, its unmarked strings are deleted like any other.
func (h *Heap) UninternUnmarked(g Generation) {
	for s, id := range h.InternTable {
		obj := h.Get(id)
		if obj == nil {
			delete(h.InternTable, s)
			continue
		}
		if obj.Hdr().Generation == g && !obj.Hdr().IsMarked {
			delete(h.InternTable, s)
		}
	}
}

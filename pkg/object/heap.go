package object

// GenInfo tracks one generation's bookkeeping: its object list head, byte
// counter, growable threshold, and remembered set (spec.md §4.5).
type GenInfo struct {
	Head           ObjectId // head of the intrusive Next-linked list, NilId if empty
	BytesAllocated int
	Threshold      int
	Remembered     map[ObjectId]bool
}

// Heap is the arena: every live object is reachable as Heap.objects[id].
// Objects never move in the arena; "promotion" only updates Header.
// Generation and re-links Header.Next into the destination generation's
// list, per spec.md §9's arena-plus-index design.
type Heap struct {
	objects []Object // index 0 is reserved (NilId)
	free    []ObjectId
	gens    [numGenerations]*GenInfo

	GrowthFactor float64

	// InternTable canonicalizes strings: copyString(s) returns the same
	// ObjectId for equal byte sequences (spec.md §8 invariant 1).
	InternTable map[string]ObjectId
}

// NewHeap creates an empty heap with the given per-generation byte
// thresholds (spec.md §6 VMConfig: gcEdenHeapSize/gcYoungHeapSize/
// gcOldHeapSize/gcHeapSize map onto Eden/Young/Old/Permanent).
func NewHeap(edenSize, youngSize, oldSize, permSize int, growthFactor float64) *Heap {
	h := &Heap{
		objects:      make([]Object, 1, 256),
		GrowthFactor: growthFactor,
		InternTable:  make(map[string]ObjectId),
	}
	sizes := [numGenerations]int{edenSize, youngSize, oldSize, permSize}
	for g := range h.gens {
		h.gens[g] = &GenInfo{
			Head:       NilId,
			Threshold:  sizes[g],
			Remembered: make(map[ObjectId]bool),
		}
	}
	return h
}

// Gen returns the bookkeeping record for a generation.
func (h *Heap) Gen(g Generation) *GenInfo { return h.gens[g] }

// Get returns the object at id. Callers must not retain an Object across
// a GC cycle boundary that could free or relocate it logically (objects
// never move physically, but a freed slot's Object may be nil).
func (h *Heap) Get(id ObjectId) Object {
	if id == NilId || int(id) >= len(h.objects) {
		return nil
	}
	return h.objects[id]
}

// sizeOf is a coarse per-kind byte estimate used to drive GC thresholds;
// it does not need to be exact, only monotonic with actual allocation
// pressure (spec.md §4.5: "reallocate updates the generation's byte
// counter").
func sizeOf(o Object) int {
	switch v := o.(type) {
	case *StringObject:
		return 24 + len(v.Chars)
	case *ArrayObject:
		return 24 + len(v.Elements)*24
	case *DictionaryObject:
		return 24 + len(v.entries)*48
	case *InstanceObject:
		return 16 + len(v.Fields)*24
	default:
		return 48
	}
}

// Allocate admits a freshly constructed object into Eden (every object is
// born in Eden, spec.md §4.5) and returns its new ObjectId. The caller is
// responsible for rooting the object (pushing it on the VM stack) before
// any further allocation that could trigger a collection, per spec.md §5's
// "protecting young objects" rule.
func (h *Heap) Allocate(o Object) ObjectId {
	hdr := o.Hdr()
	hdr.Generation = Eden
	hdr.IsMarked = false

	var id ObjectId
	if n := len(h.free); n > 0 {
		id = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[id] = o
	} else {
		id = ObjectId(len(h.objects))
		h.objects = append(h.objects, o)
	}

	gen := h.gens[Eden]
	hdr.Next = gen.Head
	gen.Head = id
	gen.BytesAllocated += sizeOf(o)
	return id
}

// WriteBarrier implements spec.md §4.5's write barrier: whenever a field
// of an object in generation g1 is assigned a pointer to an object in a
// strictly younger generation g0, the mutator records the older object
// in g0's remembered set. Call this after every reference-storing field
// write in the object model, passing the id of the object being mutated
// and the id of the value being stored into it.
func (h *Heap) WriteBarrier(owner, value ObjectId) {
	if owner == NilId || value == NilId {
		return
	}
	ownerObj := h.Get(owner)
	valueObj := h.Get(value)
	if ownerObj == nil || valueObj == nil {
		return
	}
	g1 := ownerObj.Hdr().Generation
	g0 := valueObj.Hdr().Generation
	if g0 < g1 {
		h.gens[g0].Remembered[owner] = true
	}
}

// free_ clears id's slot and returns it to the free list. It does not
// unlink id from its generation's list; Sweep, its caller, rebuilds that
// list itself. Kind-specific cleanup (releasing non-GC-owned resources) is
// the caller's responsibility before calling free_, per spec.md §3.4.
func (h *Heap) free_(id ObjectId) {
	h.objects[id] = nil
	h.free = append(h.free, id)
}

// Promote moves id from its current generation's list to the next one up,
// per spec.md §4.5's sweep-phase promotion rule. It is the GC's job to
// call this only for marked objects and only during sweep.
func (h *Heap) Promote(id ObjectId, from, to Generation) {
	obj := h.Get(id)
	if obj == nil {
		return
	}
	size := sizeOf(obj)
	h.gens[from].BytesAllocated -= size
	obj.Hdr().Generation = to
	obj.Hdr().IsMarked = false
	h.gens[to].Head, obj.Hdr().Next = id, h.gens[to].Head
	h.gens[to].BytesAllocated += size
}

// Sweep walks generation g's list, promoting marked objects into g+1 and
// freeing unmarked ones, per spec.md §4.5. destructor is invoked on every
// freed object before its slot is reclaimed (spec.md §3.4). It returns
// nothing: afterwards g's list is empty (or, for Permanent, holds only the
// survivors) and the promoted objects head g+1's list.
func (h *Heap) Sweep(g Generation, destructor func(Object)) {
	gen := h.gens[g]
	cur := gen.Head
	gen.Head = NilId
	gen.BytesAllocated = 0

	for cur != NilId {
		obj := h.Get(cur)
		next := obj.Hdr().Next
		if obj.Hdr().IsMarked {
			if g+1 < numGenerations {
				h.Promote(cur, g, g+1)
			} else {
				// Permanent generation: stays marked-clean in place.
				obj.Hdr().IsMarked = false
				obj.Hdr().Next = gen.Head
				gen.Head = cur
				gen.BytesAllocated += sizeOf(obj)
			}
		} else {
			if destructor != nil {
				destructor(obj)
			}
			h.free_(cur)
		}
		cur = next
	}
	if g+1 < numGenerations {
		// Promote subtracted each survivor from a counter already reset
		// above; every object has left g, so it holds zero bytes.
		gen.BytesAllocated = 0
	}
}

// AllObjectIds returns every currently-live object id across all
// generations, for diagnostics and tests. Not used on any GC hot path.
func (h *Heap) AllObjectIds() []ObjectId {
	var ids []ObjectId
	for g := range h.gens {
		cur := h.gens[g].Head
		for cur != NilId {
			ids = append(ids, cur)
			cur = h.Get(cur).Hdr().Next
		}
	}
	return ids
}

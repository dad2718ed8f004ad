// Package gc implements Lumen's generational, precise, tracing garbage
// collector (spec.md §4.5): four generations (Eden, Young, Old,
// Permanent) in strict promotion order, each with its own intrusive
// object list, byte counter, growable threshold, and remembered set.
//
// The collector owns the algorithm; pkg/object owns the per-kind
// tracing knowledge (object.Trace) and the generation bookkeeping
// primitives (object.Heap's Sweep/Promote/UninternUnmarked). pkg/vm
// owns the mutator-side root set, exposed back to pkg/gc through the
// narrow RootProvider interface so neither package needs to import the
// other's concrete types.
package gc

import (
	"go.uber.org/zap"

	"github.com/dustin/go-humanize"

	"github.com/kristofer/lumen/pkg/object"
)

// RootProvider is implemented by *vm.VM. Each method enumerates one of
// spec.md §4.5's mark-phase root categories.
type RootProvider interface {
	StackValues() []object.Value
	FrameClosures() []object.ObjectId
	OpenUpvalues() []object.ObjectId
	RunningGenerators() []object.ObjectId
	ClassIDs() []object.ObjectId
	NamespaceIDs() []object.ObjectId
	ModuleIDs() []object.ObjectId
	CompilingFunctionIDs() []object.ObjectId
	InitStringID() object.ObjectId
}

// Collector drives collectGarbage(gen) (spec.md §4.5) over a Heap.
type Collector struct {
	heap   *object.Heap
	log    *zap.Logger
	root   RootProvider
	stress bool

	gray []object.ObjectId
}

// New creates a Collector over heap, logging GC cycles through log as
// structured zap entries.
func New(heap *object.Heap, log *zap.Logger) *Collector {
	return &Collector{heap: heap, log: log}
}

// SetRootProvider wires the mutator's root set into the collector. VM.New
// calls this once during construction.
func (c *Collector) SetRootProvider(rp RootProvider) { c.root = rp }

// SetStressMode forces every CollectIfNeeded call to collect regardless
// of threshold (spec.md §6's `stressGC` VMConfig flag).
func (c *Collector) SetStressMode(stress bool) { c.stress = stress }

// CollectIfNeeded implements spec.md §4.5's allocation trigger: "if
// bytesAllocated exceeds the generation's threshold (or if stress-GC is
// enabled) it triggers collectGarbage(gen)". Called by the mutator after
// allocation-heavy points (pkg/vm's dispatch loop checks Eden once per
// instruction).
func (c *Collector) CollectIfNeeded(g object.Generation) {
	gen := c.heap.Gen(g)
	if c.stress || gen.BytesAllocated > gen.Threshold {
		c.Collect(g)
	}
}

// Collect runs collectGarbage(g): recursively collect g-1 first (so any
// of its survivors are already promoted into g before g is examined),
// then mark, trace, sweep, and update g's remembered set and threshold.
func (c *Collector) Collect(g object.Generation) {
	if g > object.Eden {
		c.Collect(g - 1)
	}

	before := c.heap.Gen(g).BytesAllocated
	c.mark(g)
	c.heap.UninternUnmarked(g)
	c.heap.Sweep(g, nil)
	c.migrateRemembered(g)
	c.updateThreshold(g)

	if c.log != nil {
		gen := c.heap.Gen(g)
		c.log.Debug("gc cycle",
			zap.String("generation", g.String()),
			zap.String("before", humanize.Bytes(uint64(before))),
			zap.String("after", humanize.Bytes(uint64(gen.BytesAllocated))),
			zap.String("threshold", humanize.Bytes(uint64(gen.Threshold))),
		)
	}
}

// mark walks every spec.md §4.5 root category relevant to generation g,
// marking anything reachable from it whose own generation is <= g, then
// drains the resulting gray-stack worklist via object.Trace.
func (c *Collector) mark(g object.Generation) {
	c.gray = c.gray[:0]

	markID := func(id object.ObjectId) {
		if id == object.NilId {
			return
		}
		obj := c.heap.Get(id)
		if obj == nil {
			return
		}
		hdr := obj.Hdr()
		if hdr.Generation > g || hdr.IsMarked {
			return
		}
		hdr.IsMarked = true
		c.gray = append(c.gray, id)
	}
	markValue := func(v object.Value) {
		if v.IsObject() {
			markID(v.AsObject())
		}
	}

	if c.root != nil {
		for _, v := range c.root.StackValues() {
			markValue(v)
		}
		for _, id := range c.root.FrameClosures() {
			markID(id)
		}
		for _, id := range c.root.OpenUpvalues() {
			markID(id)
		}
		for _, id := range c.root.RunningGenerators() {
			markID(id)
		}
		for _, id := range c.root.ClassIDs() {
			markID(id)
		}
		for _, id := range c.root.NamespaceIDs() {
			markID(id)
		}
		for _, id := range c.root.ModuleIDs() {
			markID(id)
		}
		for _, id := range c.root.CompilingFunctionIDs() {
			markID(id)
		}
		markID(c.root.InitStringID())
	}

	// The current generation's remembered set: objects outside g's scope
	// (older generations, not being swept this cycle) that hold a
	// reference into g. Each is traced — not marked itself, since it
	// isn't in scope — so any child it holds within g gets marked.
	for ownerID := range c.heap.Gen(g).Remembered {
		owner := c.heap.Get(ownerID)
		if owner == nil {
			continue
		}
		object.Trace(owner, markID, markValue)
	}

	for len(c.gray) > 0 {
		id := c.gray[len(c.gray)-1]
		c.gray = c.gray[:len(c.gray)-1]
		object.Trace(c.heap.Get(id), markID, markValue)
	}
}

// migrateRemembered implements spec.md §4.5's post-sweep remembered-set
// maintenance: an owner recorded in g's remembered set that's still
// alive and now strictly older than g+1 no longer needs tracking at g
// (its target generation just got swept away); move the entry up to
// g+1 so the next collection of g+1 still knows about it.
func (c *Collector) migrateRemembered(g object.Generation) {
	cur := c.heap.Gen(g)
	if g >= object.Permanent {
		cur.Remembered = map[object.ObjectId]bool{}
		return
	}
	next := c.heap.Gen(g + 1)
	for ownerID := range cur.Remembered {
		owner := c.heap.Get(ownerID)
		if owner != nil && owner.Hdr().Generation > g+1 {
			next.Remembered[ownerID] = true
		}
	}
	cur.Remembered = map[object.ObjectId]bool{}
}

// updateThreshold implements spec.md §4.5's heap-growth rule.
func (c *Collector) updateThreshold(g object.Generation) {
	gen := c.heap.Gen(g)
	if gen.BytesAllocated > gen.Threshold/2 {
		factor := c.heap.GrowthFactor
		if factor <= 0 {
			factor = 2
		}
		gen.Threshold = int(float64(gen.BytesAllocated) * factor)
	}
}

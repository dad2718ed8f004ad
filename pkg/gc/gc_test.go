package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kristofer/lumen/pkg/object"
)

// stubRoots is a RootProvider that only ever roots the ids explicitly
// handed to it through StackValues, letting tests control reachability
// precisely.
type stubRoots struct {
	stack []object.Value
}

func (s *stubRoots) StackValues() []object.Value          { return s.stack }
func (s *stubRoots) FrameClosures() []object.ObjectId      { return nil }
func (s *stubRoots) OpenUpvalues() []object.ObjectId       { return nil }
func (s *stubRoots) RunningGenerators() []object.ObjectId  { return nil }
func (s *stubRoots) ClassIDs() []object.ObjectId           { return nil }
func (s *stubRoots) NamespaceIDs() []object.ObjectId       { return nil }
func (s *stubRoots) ModuleIDs() []object.ObjectId          { return nil }
func (s *stubRoots) CompilingFunctionIDs() []object.ObjectId { return nil }
func (s *stubRoots) InitStringID() object.ObjectId         { return object.NilId }

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	heap := object.NewHeap(1<<20, 1<<20, 1<<20, 1<<20, 2)
	collector := New(heap, zap.NewNop())
	roots := &stubRoots{}
	collector.SetRootProvider(roots)

	keptID := heap.CopyString("kept")
	garbageID := heap.CopyString("garbage")
	roots.stack = []object.Value{object.Obj(keptID)}

	collector.Collect(object.Eden)

	assert.NotNil(t, heap.Get(keptID))
	assert.Nil(t, heap.Get(garbageID), "unreachable object is swept")
	kept := heap.Get(keptID)
	assert.Equal(t, object.Young, kept.Hdr().Generation, "survivor promotes one generation")
}

func TestCollectPromotesSurvivorsAcrossGenerations(t *testing.T) {
	heap := object.NewHeap(1<<20, 1<<20, 1<<20, 1<<20, 2)
	collector := New(heap, zap.NewNop())
	roots := &stubRoots{}
	collector.SetRootProvider(roots)

	id := heap.CopyString("long lived")
	roots.stack = []object.Value{object.Obj(id)}

	collector.Collect(object.Eden)
	require.Equal(t, object.Young, heap.Get(id).Hdr().Generation)

	collector.Collect(object.Young)
	assert.Equal(t, object.Old, heap.Get(id).Hdr().Generation)
}

func TestCollectIfNeededRespectsThreshold(t *testing.T) {
	heap := object.NewHeap(1<<20, 1<<20, 1<<20, 1<<20, 2)
	collector := New(heap, zap.NewNop())
	collector.SetRootProvider(&stubRoots{})

	heap.Gen(object.Eden).Threshold = 1 << 30
	heap.CopyString("small")
	before := heap.Gen(object.Eden).BytesAllocated
	collector.CollectIfNeeded(object.Eden)
	assert.Equal(t, before, heap.Gen(object.Eden).BytesAllocated, "below threshold, no collection runs")
}

func TestCollectIfNeededStressModeAlwaysCollects(t *testing.T) {
	heap := object.NewHeap(1<<20, 1<<20, 1<<20, 1<<20, 2)
	collector := New(heap, zap.NewNop())
	roots := &stubRoots{}
	collector.SetRootProvider(roots)
	collector.SetStressMode(true)

	id := heap.CopyString("x")
	heap.Gen(object.Eden).Threshold = 1 << 30
	roots.stack = []object.Value{object.Obj(id)}

	collector.CollectIfNeeded(object.Eden)
	assert.Equal(t, object.Young, heap.Get(id).Hdr().Generation)
}

package gc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRoots implements RootSource over an explicit slice, standing in for
// the interpreter's frame/register roots in isolation from internal/interp.
type fakeRoots struct{ roots []Value }

func (f fakeRoots) AppendRoots(dst []Value) []Value { return append(dst, f.roots...) }

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	h := NewHeap(zap.NewNop())
	kept := h.NewString("kept")
	h.NewString("garbage")

	h.Collect(fakeRoots{roots: []Value{{Kind: KStr, Obj: kept}}})

	require.Equal(t, int64(kept.Size()), h.Bytes())
}

func TestCollectMarksThroughArrayElements(t *testing.T) {
	h := NewHeap(zap.NewNop())
	inner := h.NewString("reachable")
	outer := h.NewArray([]Value{{Kind: KStr, Obj: inner}})
	h.NewString("unreachable")

	h.Collect(fakeRoots{roots: []Value{{Kind: KArray, Obj: outer}}})

	require.Equal(t, int64(outer.Size()+inner.Size()), h.Bytes())
}

func TestNextGCWatermarkDoublesWithFloor(t *testing.T) {
	h := NewHeap(zap.NewNop())
	require.Equal(t, int64(minHeapFloor), h.NextGC())

	h.Collect(fakeRoots{})
	require.Equal(t, int64(minHeapFloor), h.NextGC(), "watermark never drops below the 1 MiB floor")
}

func TestMaybeCollectOnlyRunsPastWatermark(t *testing.T) {
	h := NewHeap(zap.NewNop())
	h.NewString("small")
	before := h.Bytes()

	h.MaybeCollect(fakeRoots{})
	require.Equal(t, before, h.Bytes(), "allocation is far below the watermark, no sweep should run")
}

package gc

import (
	"go.uber.org/zap"

	"github.com/dustin/go-humanize"
)

const minHeapFloor = 1 << 20 // 1 MiB, spec.md §4.5 "floor 1 MiB"

// RootSource is implemented by the interpreter so the collector can mark
// live Values without the gc package knowing about frames or registers.
// AppendRoots should append every currently-live Value to dst and return it,
// mirroring spec.md §4.6's "every register across the live register file
// for RBC; stack and locals for SBC".
type RootSource interface {
	AppendRoots(dst []Value) []Value
}

// Heap is a stop-the-world mark-sweep collector over BP's five heap object
// kinds. It runs cooperatively at interpreter instruction boundaries; there
// is no concurrent mutator (spec.md §4.5, §5).
type Heap struct {
	head    *Object
	bytes   int64
	nextGC  int64
	log     *zap.Logger
	sweeps  int64
}

// NewHeap constructs an empty heap with the documented initial watermark.
func NewHeap(log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Heap{nextGC: minHeapFloor, log: log}
}

func (h *Heap) link(o *Object) *Object {
	o.next = h.head
	h.head = o
	h.bytes += int64(o.Size())
	return o
}

// NewString allocates a heap string object.
func (h *Heap) NewString(s string) *Object {
	return h.link(&Object{Kind: OString, Str: s})
}

// NewArray allocates a growable array object with the given initial elements
// (copied, not aliased).
func (h *Heap) NewArray(elems []Value) *Object {
	arr := make([]Value, len(elems))
	copy(arr, elems)
	return h.link(&Object{Kind: OArray, Arr: arr})
}

// NewMap allocates an empty map object.
func (h *Heap) NewMap() *Object {
	return h.link(&Object{Kind: OMap})
}

// NewStruct allocates a struct instance with fieldCount zero-valued slots.
func (h *Heap) NewStruct(typeID int, fieldCount int) *Object {
	return h.link(&Object{Kind: OStruct, ClassID: typeID, Fields: make([]Value, fieldCount)})
}

// NewClass allocates a class instance with fieldCount zero-valued slots.
func (h *Heap) NewClass(classID int, fieldCount int) *Object {
	return h.link(&Object{Kind: OClass, ClassID: classID, Fields: make([]Value, fieldCount)})
}

// Bytes reports currently-allocated heap bytes (post-sweep accounting).
func (h *Heap) Bytes() int64 { return h.bytes }

// NextGC reports the current collection watermark.
func (h *Heap) NextGC() int64 { return h.nextGC }

// MaybeCollect runs a mark-sweep pass if allocated bytes exceed the
// watermark, then sets next_gc = max(bytes*2, 1 MiB) per spec.md §4.5.
func (h *Heap) MaybeCollect(roots RootSource) {
	if h.bytes <= h.nextGC {
		return
	}
	h.Collect(roots)
}

// Collect runs an unconditional mark-sweep pass.
func (h *Heap) Collect(roots RootSource) {
	before := h.bytes
	live := roots.AppendRoots(nil)
	for _, v := range live {
		h.mark(v)
	}
	h.sweep()
	if h.bytes*2 > minHeapFloor {
		h.nextGC = h.bytes * 2
	} else {
		h.nextGC = minHeapFloor
	}
	h.sweeps++
	h.log.Debug("gc sweep",
		zap.String("before", humanize.Bytes(uint64(before))),
		zap.String("after", humanize.Bytes(uint64(h.bytes))),
		zap.String("next_gc", humanize.Bytes(uint64(h.nextGC))),
		zap.Int64("sweep_count", h.sweeps),
	)
}

func (h *Heap) mark(v Value) {
	if v.Obj == nil || v.Obj.mark {
		return
	}
	v.Obj.mark = true
	switch v.Obj.Kind {
	case OArray:
		for _, e := range v.Obj.Arr {
			h.mark(e)
		}
	case OMap:
		for _, k := range v.Obj.MapKeys {
			h.mark(k)
		}
		for _, val := range v.Obj.MapVals {
			h.mark(val)
		}
	case OStruct, OClass:
		for _, f := range v.Obj.Fields {
			h.mark(f)
		}
	}
}

func (h *Heap) sweep() {
	var kept *Object
	var keptTail *Object
	var liveBytes int64
	for o := h.head; o != nil; {
		next := o.next
		if o.mark {
			o.mark = false
			o.next = nil
			if kept == nil {
				kept = o
			} else {
				keptTail.next = o
			}
			keptTail = o
			liveBytes += int64(o.Size())
		}
		o = next
	}
	h.head = kept
	h.bytes = liveBytes
}

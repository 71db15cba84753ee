package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Heap: non-moving mark-and-sweep arena
// ---------------------------------------------------------------------------

// DefaultGCThreshold is the live-object count that triggers the first
// collection. After each sweep the threshold is reset to twice the
// surviving live count, and never below this value.
const DefaultGCThreshold = 1 << 12

// GCStats holds statistics from a single collection.
type GCStats struct {
	Collections   uint64
	LastLive      int
	LastSwept     int
	LastDuration  time.Duration
	TotalSwept    uint64
	LastTimestamp time.Time
}

// Rooter exposes an object graph's roots to the collector.
type Rooter interface {
	TraceRoots(mark func(Value))
}

// OOMError is raised when an allocation finds the live-object count at
// the heap's MaxObjects cap.
type OOMError struct {
	Objects int
}

func (e *OOMError) Error() string {
	return "out of memory: heap limit reached"
}

// Heap hosts all GC-managed objects. Handles are slot indices; objects
// never move. Collection is stop-the-world mark-and-sweep and runs only
// at instruction boundaries (the VM calls MaybeCollect at every call,
// tail call and return).
type Heap struct {
	slots []Object
	marks []bool
	free  []Handle

	live   int
	nextGC int

	// MaxObjects caps the live-object count; 0 means unlimited. Alloc
	// panics with *OOMError, which the VM converts to an error at its entry
	// point, as soon as the live count has reached the cap. Alloc does not
	// run a collection first, so unreachable objects not yet swept at the
	// last safe point count toward the cap.
	MaxObjects int

	// pins are explicit temporary roots: values the compiler needs kept
	// alive before they are reachable from the VM proper.
	pins []Value

	stats GCStats
	log   commonlog.Logger
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		slots:  make([]Object, 0, 1024),
		marks:  make([]bool, 0, 1024),
		nextGC: DefaultGCThreshold,
		log:    commonlog.GetLogger("cheshire.gc"),
	}
}

// Alloc places an object in the heap and returns its handle.
func (h *Heap) Alloc(o Object) Handle {
	if h.MaxObjects > 0 && h.live >= h.MaxObjects {
		panic(&OOMError{Objects: h.live})
	}
	h.live++
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		h.slots[idx] = o
		return idx
	}
	h.slots = append(h.slots, o)
	h.marks = append(h.marks, false)
	return Handle(len(h.slots) - 1)
}

// Get returns the object for a handle. The handle must be live.
func (h *Heap) Get(handle Handle) Object {
	return h.slots[handle]
}

// Live returns the current live-object count.
func (h *Heap) Live() int { return h.live }

// Stats returns collection statistics.
func (h *Heap) Stats() GCStats { return h.stats }

// Pin registers a temporary root and returns an unpin token: call
// Unpin with the token once the value is reachable from the VM.
func (h *Heap) Pin(v Value) int {
	h.pins = append(h.pins, v)
	return len(h.pins) - 1
}

// Unpin releases all pins from token onward. Pins nest like a stack.
func (h *Heap) Unpin(token int) {
	h.pins = h.pins[:token]
}

// NeedsCollection reports whether the live count has crossed the
// threshold.
func (h *Heap) NeedsCollection() bool {
	return h.live >= h.nextGC
}

// Collect performs a full mark-and-sweep over the heap using the given
// root set. Everything unreachable from the roots and the pin stack is
// freed.
func (h *Heap) Collect(roots Rooter) {
	start := time.Now()

	for i := range h.marks {
		h.marks[i] = false
	}

	// Mark phase: iterative worklist so deep structures cannot overflow
	// the Go stack.
	var gray []Handle
	mark := func(v Value) {
		if !v.IsObject() && !v.IsBox() {
			return
		}
		idx := v.Handle()
		if h.marks[idx] {
			return
		}
		h.marks[idx] = true
		gray = append(gray, idx)
	}

	roots.TraceRoots(mark)
	for _, v := range h.pins {
		mark(v)
	}
	for len(gray) > 0 {
		idx := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		if o := h.slots[idx]; o != nil {
			o.Trace(mark)
		}
	}

	// Sweep phase.
	swept := 0
	for i, o := range h.slots {
		if o == nil || h.marks[i] {
			continue
		}
		if p, ok := o.(*Port); ok {
			_ = p.Close()
		}
		h.slots[i] = nil
		h.free = append(h.free, Handle(i))
		swept++
	}
	h.live -= swept

	h.nextGC = h.live * 2
	if h.nextGC < DefaultGCThreshold {
		h.nextGC = DefaultGCThreshold
	}

	h.stats.Collections++
	h.stats.LastLive = h.live
	h.stats.LastSwept = swept
	h.stats.LastDuration = time.Since(start)
	h.stats.TotalSwept += uint64(swept)
	h.stats.LastTimestamp = start

	h.log.Debugf("collection %d: swept %d, live %d, next at %d (%s)",
		h.stats.Collections, swept, h.live, h.nextGC, h.stats.LastDuration)
}

package shared

// Integer is a named, refcounted, linearisable counter. A second
// caller constructing an Integer with the same name attaches to the
// existing segment and observes its current value rather than
// resetting it, per the SharedAtomic init-once-by-name contract.
type Integer struct {
	seg *Segment
}

// NewInteger creates or attaches to the named integer segment. initial
// is only honoured on first creation; subsequent attaches ignore it.
func NewInteger(name string, initial int64) *Integer {
	return &Integer{seg: Attach(name, uint64(initial))}
}

// Value returns the current value.
func (i *Integer) Value() int64 { return int64(i.seg.Load()) }

// Set stores a new value directly.
func (i *Integer) Set(v int64) { i.seg.Store(uint64(v)) }

// Increment adds delta (default 1 semantics are the caller's choice)
// and returns the resulting value. Linearisable across concurrent
// callers.
func (i *Integer) Increment(delta int64) int64 {
	return int64(i.seg.Add(uint64(delta)))
}

// Reset sets the value back to zero and returns it.
func (i *Integer) Reset() int64 {
	i.seg.Store(0)
	return 0
}

// CompareAndSwap atomically sets the value to new if it currently
// equals old, reporting whether the swap happened.
func (i *Integer) CompareAndSwap(old, new int64) bool {
	return i.seg.CompareAndSwap(uint64(old), uint64(new))
}

// Destroy releases this handle's refcount on the underlying segment.
func (i *Integer) Destroy() { Detach(i.seg) }

// Package shared implements the named, refcounted atomic primitives
// described as "SharedAtomic" in the design: Integer, Enum, and State
// values that are created exactly once per name and survive repeated
// attaches from independent callers.
//
// A production deployment backs these by a SysV shared-memory segment
// so worker processes on the same host observe the same value; that
// backing store is out of scope here (contract-only per the design)
// and is simulated with a package-level registry of in-process atomics.
// Anything that would attach to a named segment from another process
// instead attaches to the same *Segment here, which preserves the
// observable contract (idempotent-by-name, linearisable increment,
// refcount-gated destroy) for a single process.
package shared

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Segment is a named, refcounted holder of a 64-bit atomic value.
// Multiple Attach calls with the same name return the same Segment and
// observe its current value rather than resetting it.
type Segment struct {
	name     string
	value    atomic.Uint64
	refcount atomic.Int32
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Segment{}
)

// Attach returns the segment named name, creating it with the given
// initial value if this is the first attach. Every Attach call
// increments the segment's refcount; callers must pair it with Detach.
func Attach(name string, initial uint64) *Segment {
	registryMu.Lock()
	defer registryMu.Unlock()

	if seg, ok := registry[name]; ok {
		seg.refcount.Add(1)
		return seg
	}

	seg := &Segment{name: name}
	seg.value.Store(initial)
	seg.refcount.Store(1)
	registry[name] = seg
	return seg
}

// Detach releases one refcount on the segment. When the refcount
// reaches zero the segment is removed from the registry, mirroring a
// SysV segment being reaped once its last worker detaches.
func Detach(seg *Segment) {
	if seg == nil {
		return
	}
	if seg.refcount.Add(-1) > 0 {
		return
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if registry[seg.name] == seg {
		delete(registry, seg.name)
	}
}

// Name returns the segment's name.
func (s *Segment) Name() string { return s.name }

// Refcount returns the number of live attaches to this segment.
func (s *Segment) Refcount() int32 { return s.refcount.Load() }

// Load returns the current raw value.
func (s *Segment) Load() uint64 { return s.value.Load() }

// Store sets the raw value.
func (s *Segment) Store(v uint64) { s.value.Store(v) }

// Add adds delta and returns the post-increment value. Linearisable:
// under N racing callers adding 1, the returned values form a
// permutation of {k+1, ..., k+N}.
func (s *Segment) Add(delta uint64) uint64 { return s.value.Add(delta) }

// CompareAndSwap performs an atomic compare-and-swap on the raw value.
func (s *Segment) CompareAndSwap(old, new uint64) bool {
	return s.value.CompareAndSwap(old, new)
}

func resetSegmentForTests(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// ErrInvalidValue is returned when a shared value is read outside its
// declared domain (e.g. an Enum segment holding an ordinal with no
// matching symbol, or a State segment holding an unrecognised value).
type ErrInvalidValue struct {
	Name  string
	Value uint64
}

func (e *ErrInvalidValue) Error() string {
	return fmt.Sprintf("shared: segment %q holds invalid value %d", e.Name, e.Value)
}

// Package bulkhead implements the counting-semaphore capacity limiter
// that caps in-flight calls to one dependency: ticketed admission with
// a wait timeout, and quota-based capacity resolved against the
// worker count (GOMAXPROCS) at registration time.
package bulkhead

import (
	"context"
	"errors"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vnykmshr/guardrail/internal/shared"
)

// ErrResourceOccupied is returned when Acquire could not obtain a
// ticket within its timeout.
var ErrResourceOccupied = errors.New("bulkhead: resource occupied")

// Bulkhead is a counting semaphore with a fixed number of tickets,
// backed by golang.org/x/sync/semaphore's weighted implementation.
type Bulkhead struct {
	sem     *semaphore.Weighted
	tickets int64
}

// New creates a Bulkhead with the given number of tickets.
func New(tickets int) *Bulkhead {
	if tickets < 1 {
		tickets = 1
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(tickets)), tickets: int64(tickets)}
}

// NewFromQuota resolves a fractional quota (0 < q <= 1) against the
// worker count reported by runtime.GOMAXPROCS(0) into a ticket count
// of at least 1. GOMAXPROCS is used as reported; nothing in this
// package adjusts it to a container's CPU quota.
func NewFromQuota(quota float64) *Bulkhead {
	workers := runtime.GOMAXPROCS(0)
	tickets := int(math.Ceil(quota * float64(workers)))
	if tickets < 1 {
		tickets = 1
	}
	return New(tickets)
}

// Tickets returns the bulkhead's configured capacity.
func (b *Bulkhead) Tickets() int { return int(b.tickets) }

// Acquire blocks up to timeout for a ticket, runs fn while holding it,
// then releases. It returns ErrResourceOccupied if no ticket became
// available within timeout; fn's error is returned unchanged
// otherwise.
func (b *Bulkhead) Acquire(timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		// timeout == 0 means "try once, do not wait".
		return b.TryAcquire(fn)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return ErrResourceOccupied
	}
	defer b.sem.Release(1)

	return fn()
}

// TryAcquire attempts to obtain a ticket without blocking, returning
// ErrResourceOccupied immediately if none are free.
func (b *Bulkhead) TryAcquire(fn func() error) error {
	if !b.sem.TryAcquire(1) {
		return ErrResourceOccupied
	}
	defer b.sem.Release(1)
	return fn()
}

// SharedBulkhead is the cross-process variant: its permit count is
// backed by a named shared.Integer rather than an in-process
// semaphore, so the contract (a named segment whose permit count
// survives worker restarts) holds even though this implementation
// keeps the count in-process per the package's documented
// simplification (see internal/shared's doc comment).
type SharedBulkhead struct {
	name    string
	tickets int64
	inUse   *shared.Integer
}

// NewShared creates a SharedBulkhead identified by name, attaching to
// (or creating) the named segment tracking in-use tickets.
func NewShared(name string, tickets int) *SharedBulkhead {
	if tickets < 1 {
		tickets = 1
	}
	return &SharedBulkhead{
		name:    name,
		tickets: int64(tickets),
		inUse:   shared.NewInteger(name+":bulkhead:inuse", 0),
	}
}

// Acquire blocks up to timeout, polling the shared counter, for a
// free ticket; runs fn while holding it, then releases.
func (b *SharedBulkhead) Acquire(timeout time.Duration, fn func() error) error {
	deadline := time.Now().Add(timeout)
	const pollInterval = time.Millisecond

	for {
		if b.tryTake() {
			defer b.inUse.Increment(-1)
			return fn()
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return ErrResourceOccupied
		}
		time.Sleep(pollInterval)
	}
}

func (b *SharedBulkhead) tryTake() bool {
	for {
		current := b.inUse.Value()
		if current >= b.tickets {
			return false
		}
		if b.inUse.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Destroy releases this bulkhead's reference to its shared segment.
func (b *SharedBulkhead) Destroy() {
	b.inUse.Destroy()
}

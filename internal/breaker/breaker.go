// Package breaker implements the three interchangeable circuit-breaker
// strategies: a classic sliding-window threshold breaker, an adaptive
// breaker driven by a PID controller over a smoothed error rate and
// latency quantile, and a dual breaker that fans out to both while one
// is authoritative. All three satisfy Breaker, so ProtectedResource
// treats them as a tagged variant with no inheritance involved.
package breaker

import (
	"errors"
	"time"
)

// State is the three-valued classic breaker state. Adaptive breakers
// have no discrete state (the rejection probability is the state) and
// report no State.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Admission is the outcome of asking a breaker whether a call may
// proceed. It replaces exceptions-for-control-flow with a plain result
// discriminator; the caller decides what error kind to raise.
type Admission int

const (
	// Admitted means the caller may proceed with the block.
	Admitted Admission = iota
	// Rejected means the breaker has decided this call should not run.
	Rejected
)

// ErrDestroyed names the use of a breaker after Destroy. No Breaker
// method returns an error, so nothing in this package returns it.
var ErrDestroyed = errors.New("breaker: use of destroyed breaker")

// Breaker is the common admission/record interface implemented by
// ClassicBreaker, AdaptiveBreaker and DualBreaker. ProtectedResource
// depends only on this interface, never on a concrete type.
type Breaker interface {
	// Admit decides whether a call may proceed right now.
	Admit() Admission
	// RecordSuccess reports that the protected block completed without
	// a counted error.
	RecordSuccess(latency time.Duration)
	// RecordFailure reports that the protected block raised a counted
	// error.
	RecordFailure(latency time.Duration)
	// Reset returns the breaker to its initial state, clearing any
	// sliding window or learned signal.
	Reset()
	// Destroy releases background resources (prober goroutines, shared
	// segments). The breaker must not be used afterwards.
	Destroy()
	// IsHalfOpen reports whether the breaker is currently probing.
	// Adaptive breakers, which have no discrete state, always report
	// false.
	IsHalfOpen() bool
}

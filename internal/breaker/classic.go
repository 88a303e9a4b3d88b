package breaker

import (
	"sync"
	"time"

	"github.com/vnykmshr/guardrail/internal/logging"
	"github.com/vnykmshr/guardrail/internal/window"
)

// ClassicSettings configures a ClassicBreaker. Zero values are not
// valid; ClassicBreakers are always constructed with explicit
// thresholds from the resource's Options.
type ClassicSettings struct {
	Name string

	// ErrorThreshold is the number of counted failures within
	// ErrorThresholdTimeout that trips the breaker closed->open.
	ErrorThreshold int
	// ErrorThresholdTimeout is the width of the failure-counting window.
	ErrorThresholdTimeout time.Duration
	// SuccessThreshold is the number of consecutive half-open
	// successes required to close the breaker.
	SuccessThreshold int
	// ErrorTimeout is how long the breaker dwells in open before
	// admitting a half-open probe.
	ErrorTimeout time.Duration

	// OnStateChange, if set, is invoked after every transition. Panics
	// are recovered and logged; the transition itself always proceeds.
	OnStateChange func(name string, from, to State)
}

// ClassicBreaker is the sliding-window threshold breaker: closed until
// ErrorThreshold counted failures land inside ErrorThresholdTimeout,
// then open for ErrorTimeout, then a single half-open probe decides
// recovery.
type ClassicBreaker struct {
	settings ClassicSettings

	mu               sync.Mutex
	state            State
	openedAt         time.Time
	halfOpenInFlight bool
	consecutiveOK    int

	failures *window.TimeWindow[bool]

	destroyed bool
}

// NewClassic constructs a ClassicBreaker from settings.
func NewClassic(s ClassicSettings) *ClassicBreaker {
	return &ClassicBreaker{
		settings: s,
		state:    StateClosed,
		failures: window.NewTimeWindow[bool](s.ErrorThresholdTimeout),
	}
}

// Admit decides admission per the classic state machine. In closed,
// everything passes. In open, it checks whether ErrorTimeout has
// elapsed and if so transitions to half-open and admits exactly one
// probe; otherwise it rejects. In half-open, admissions are serialised
// explicitly: only one probe may be in flight at a time, resolving the
// legacy race the state-alone check would otherwise allow.
func (c *ClassicBreaker) Admit() Admission {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return Admitted
	case StateOpen:
		if time.Since(c.openedAt) < c.settings.ErrorTimeout {
			return Rejected
		}
		c.transitionLocked(StateHalfOpen)
		c.halfOpenInFlight = true
		return Admitted
	case StateHalfOpen:
		if c.halfOpenInFlight {
			return Rejected
		}
		c.halfOpenInFlight = true
		return Admitted
	default:
		return Rejected
	}
}

// RecordSuccess pushes nothing into the error window, which holds only
// failures, so in closed it has no effect; in half-open it
// advances the consecutive-success counter and closes the breaker once
// SuccessThreshold is reached.
func (c *ClassicBreaker) RecordSuccess(_ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateHalfOpen:
		c.halfOpenInFlight = false
		c.consecutiveOK++
		if c.consecutiveOK >= c.settings.SuccessThreshold {
			c.transitionLocked(StateClosed)
		}
	case StateClosed:
		// No bookkeeping needed: the error window only tracks failures.
	}
}

// RecordFailure pushes a failure timestamp into the error window and
// re-evaluates the open condition; in half-open, any failure reopens
// the breaker immediately.
func (c *ClassicBreaker) RecordFailure(_ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateHalfOpen:
		c.halfOpenInFlight = false
		c.transitionLocked(StateOpen)
	case StateClosed:
		c.failures.Push(true)
		if c.failures.Count(true) >= c.settings.ErrorThreshold {
			c.transitionLocked(StateOpen)
		}
	}
}

// transitionLocked performs a state transition; caller holds c.mu.
func (c *ClassicBreaker) transitionLocked(to State) {
	from := c.state
	c.state = to

	switch to {
	case StateOpen:
		c.openedAt = time.Now()
		c.failures.Clear()
		c.consecutiveOK = 0
	case StateClosed:
		c.failures.Clear()
		c.consecutiveOK = 0
		c.halfOpenInFlight = false
	case StateHalfOpen:
		c.consecutiveOK = 0
	}

	if c.settings.OnStateChange != nil {
		c.invokeOnStateChange(from, to)
	}
}

func (c *ClassicBreaker) invokeOnStateChange(from, to State) {
	defer func() {
		if r := recover(); r != nil {
			logging.CallbackPanic(c.settings.Name, "OnStateChange", r)
		}
	}()
	c.settings.OnStateChange(c.settings.Name, from, to)
}

// Reset clears the error window and success counter and returns the
// breaker to closed, regardless of its current state.
func (c *ClassicBreaker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
	c.failures.Clear()
	c.consecutiveOK = 0
	c.halfOpenInFlight = false
}

// Destroy marks the breaker destroyed; the other methods do not check
// the mark. ClassicBreaker holds no background goroutines, so there is
// nothing else to tear down.
func (c *ClassicBreaker) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
}

// IsHalfOpen reports whether the breaker is currently in half-open.
func (c *ClassicBreaker) IsHalfOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateHalfOpen
}

// CurrentState returns the breaker's current discrete state, for
// diagnostics and instrumentation.
func (c *ClassicBreaker) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Diagnostics is a troubleshooting snapshot of a ClassicBreaker: its
// state, how many counted failures currently sit in the error window,
// and how long until an open breaker next admits a probe.
type Diagnostics struct {
	Name             string
	State            State
	FailuresInWindow int
	OpenedAt         time.Time
	TimeUntilProbe   time.Duration
}

// Diagnostics returns a snapshot for dashboards and incident response.
func (c *ClassicBreaker) Diagnostics() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Diagnostics{
		Name:             c.settings.Name,
		State:            c.state,
		FailuresInWindow: c.failures.Count(true),
		OpenedAt:         c.openedAt,
	}
	if c.state == StateOpen {
		remaining := c.settings.ErrorTimeout - time.Since(c.openedAt)
		if remaining > 0 {
			d.TimeUntilProbe = remaining
		}
	}
	return d
}

package guardrail

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vnykmshr/guardrail/internal/breaker"
	"github.com/vnykmshr/guardrail/internal/bulkhead"
	"github.com/vnykmshr/guardrail/internal/logging"
)

// EventKind identifies what happened during an Acquire call, for
// instrumentation subscribers.
type EventKind int

const (
	EventSuccess EventKind = iota
	EventOccupied
	EventCircuitOpen
	EventStateChange
)

func (k EventKind) String() string {
	switch k {
	case EventSuccess:
		return "success"
	case EventOccupied:
		return "occupied"
	case EventCircuitOpen:
		return "circuit_open"
	case EventStateChange:
		return "state_change"
	default:
		return "unknown"
	}
}

// Event is delivered to every subscriber when an Acquire call succeeds,
// is rejected by the breaker, or times out on the bulkhead, and on each
// classic breaker state transition. An Acquire whose block returns an
// error publishes no event. Payload carries call-specific detail
// (e.g. the latency of a successful call, or the from/to states of a
// state_change event).
type Event struct {
	Kind     EventKind
	Resource string
	Payload  any
}

// Subscriber receives Events. A Subscriber that panics has its panic
// recovered and logged; it never affects the call that triggered the
// event.
type Subscriber func(Event)

// Options configures a ProtectedResource. Tickets (or Quota) and the
// breaker thresholds are immutable once registered.
type Options struct {
	// Tickets is the bulkhead's fixed capacity. Mutually exclusive with Quota.
	Tickets int
	// Quota is a fractional capacity (0 < q <= 1) resolved against the
	// discovered worker count at registration. Mutually exclusive with Tickets.
	Quota float64
	// Timeout is the bulkhead's wait budget.
	Timeout time.Duration
	// HalfOpenResourceTimeout, if set, replaces Timeout while the
	// classic breaker is half-open.
	HalfOpenResourceTimeout time.Duration

	// ErrorThreshold, ErrorThresholdTimeout, SuccessThreshold, ErrorTimeout
	// configure the classic breaker (spec.md §4.3).
	ErrorThreshold        int
	ErrorThresholdTimeout time.Duration
	SuccessThreshold      int
	ErrorTimeout          time.Duration

	// Exceptions classifies a block error as counted (true) or
	// uncounted (false). Nil means "every non-nil error is counted".
	Exceptions func(error) bool

	// BulkheadDisabled and CircuitBreakerDisabled default to false, so
	// both safeguards are on; set either to true to disable it.
	BulkheadDisabled       bool
	CircuitBreakerDisabled bool

	// AdaptiveCircuitBreaker / DualCircuitBreaker select the breaker
	// strategy; both false means classic.
	AdaptiveCircuitBreaker bool
	DualCircuitBreaker     bool

	// Adaptive-specific settings, used when AdaptiveCircuitBreaker or
	// DualCircuitBreaker is set.
	InitialAlpha    float64
	SmootherCap     float64
	TargetErrorRate float64
	TargetLatencyMS float64
	Kp, Ki, Kd      float64
	PingInterval    time.Duration
	PingProbe       func() (err error, latency time.Duration)

	// DualSelector decides, per call, whether the adaptive breaker is
	// authoritative when DualCircuitBreaker is set. When nil, the legacy
	// (classic) breaker is always authoritative.
	DualSelector func() bool
}

// ProtectedResource composes a bulkhead and a circuit breaker around a
// caller-supplied block, classifying block errors and notifying
// instrumentation subscribers.
type ProtectedResource struct {
	id   string
	opts Options

	bulk    *bulkhead.Bulkhead
	sharedB *bulkhead.SharedBulkhead
	brk     breaker.Breaker // nil when CircuitBreakerDisabled

	mu          sync.Mutex
	subscribers map[uuid.UUID]Subscriber

	destroyed bool
}

// newResource constructs and wires up a ProtectedResource from Options.
func newResource(id string, opts Options) *ProtectedResource {
	r := &ProtectedResource{
		id:          id,
		opts:        opts,
		subscribers: make(map[uuid.UUID]Subscriber),
	}

	if !opts.BulkheadDisabled {
		if opts.Quota > 0 {
			r.bulk = bulkhead.NewFromQuota(opts.Quota)
		} else {
			tickets := opts.Tickets
			if tickets < 1 {
				tickets = 1
			}
			r.bulk = bulkhead.New(tickets)
		}
	}

	if !opts.CircuitBreakerDisabled {
		r.brk = r.buildBreaker()
	}

	return r
}

func (r *ProtectedResource) buildBreaker() breaker.Breaker {
	classic := breaker.NewClassic(breaker.ClassicSettings{
		Name:                  r.id,
		ErrorThreshold:        r.opts.ErrorThreshold,
		ErrorThresholdTimeout: r.opts.ErrorThresholdTimeout,
		SuccessThreshold:      r.opts.SuccessThreshold,
		ErrorTimeout:          r.opts.ErrorTimeout,
		OnStateChange: func(name string, from, to breaker.State) {
			r.publish(Event{Kind: EventStateChange, Resource: r.id, Payload: [2]breaker.State{from, to}})
		},
	})

	if !r.opts.AdaptiveCircuitBreaker && !r.opts.DualCircuitBreaker {
		return classic
	}

	adaptive := breaker.NewAdaptive(breaker.AdaptiveSettings{
		Name:            r.id,
		InitialAlpha:    r.opts.InitialAlpha,
		SmootherCap:     r.opts.SmootherCap,
		TargetErrorRate: r.opts.TargetErrorRate,
		TargetLatencyMS: r.opts.TargetLatencyMS,
		Kp:              r.opts.Kp,
		Ki:              r.opts.Ki,
		Kd:              r.opts.Kd,
		PingInterval:    r.opts.PingInterval,
		PingProbe:       r.opts.PingProbe,
	})

	if !r.opts.DualCircuitBreaker {
		return adaptive
	}

	selector := r.opts.DualSelector
	if selector == nil {
		selector = func() bool { return false }
	}
	return breaker.NewDual(r.id, classic, adaptive, selector)
}

// Acquire runs block under this resource's bulkhead and breaker,
// implementing spec.md §4.9's five-step sequence.
func (r *ProtectedResource) Acquire(block func() error) error {
	if r.brk != nil {
		if r.brk.Admit() == breaker.Rejected {
			r.publish(Event{Kind: EventCircuitOpen, Resource: r.id})
			return newError(KindOpenCircuit, r.id, nil)
		}
	}

	timeout := r.opts.Timeout
	if r.brk != nil && r.brk.IsHalfOpen() && r.opts.HalfOpenResourceTimeout > 0 {
		timeout = r.opts.HalfOpenResourceTimeout
	}

	if r.bulk == nil {
		return r.runBlock(block)
	}

	var runErr error
	acquireErr := r.bulk.Acquire(timeout, func() error {
		runErr = r.runBlock(block)
		return nil
	})
	if acquireErr != nil {
		if r.brk != nil {
			r.brk.RecordFailure(0)
		}
		r.publish(Event{Kind: EventOccupied, Resource: r.id})
		return newError(KindResourceOccupied, r.id, acquireErr)
	}
	return runErr
}

// runBlock executes block, measures latency, and reports the outcome
// to the breaker per the classification policy in Exceptions.
func (r *ProtectedResource) runBlock(block func() error) error {
	start := time.Now()
	err := block()
	latency := time.Since(start)

	if err == nil {
		if r.brk != nil {
			r.brk.RecordSuccess(latency)
		}
		r.publish(Event{Kind: EventSuccess, Resource: r.id, Payload: latency})
		return nil
	}

	if r.counted(err) {
		if r.brk != nil {
			r.brk.RecordFailure(latency)
		}
		return err
	}

	// Uncounted error: the dependency is deemed healthy even though
	// the caller erred.
	if r.brk != nil {
		r.brk.RecordSuccess(latency)
	}
	return err
}

func (r *ProtectedResource) counted(err error) bool {
	if r.opts.Exceptions == nil {
		return true
	}
	return r.opts.Exceptions(err)
}

// WithFallback runs Acquire(block) and converts any GuardrailError or
// counted block error into fallback.
func (r *ProtectedResource) WithFallback(fallback error, block func() error) error {
	err := r.Acquire(block)
	if err == nil {
		return nil
	}

	var ge *GuardrailError
	if errors.As(err, &ge) {
		return fallback
	}
	if r.counted(err) {
		return fallback
	}
	return err
}

// Subscribe registers callback to receive every Event published by
// this resource, returning a token for Unsubscribe.
func (r *ProtectedResource) Subscribe(callback Subscriber) uuid.UUID {
	token := uuid.New()
	r.mu.Lock()
	r.subscribers[token] = callback
	r.mu.Unlock()
	return token
}

// Unsubscribe removes a subscriber registered with Subscribe.
func (r *ProtectedResource) Unsubscribe(token uuid.UUID) {
	r.mu.Lock()
	delete(r.subscribers, token)
	r.mu.Unlock()
}

// publish fans Event out to every subscriber; a panicking subscriber
// is recovered and logged, never affecting the call that triggered it.
func (r *ProtectedResource) publish(ev Event) {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		r.invokeSubscriber(s, ev)
	}
}

func (r *ProtectedResource) invokeSubscriber(s Subscriber, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.SubscriberError(r.id, ev.Kind.String(), errors.New("subscriber panicked"))
		}
	}()
	s(ev)
}

// Destroy tears down the shared bulkhead, if any, and the breaker
// (stopping any adaptive prober goroutine), and marks the resource
// destroyed so a second Destroy is a no-op. Acquire does not check the
// mark.
func (r *ProtectedResource) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	r.mu.Unlock()

	if r.sharedB != nil {
		r.sharedB.Destroy()
	}
	if r.brk != nil {
		r.brk.Destroy()
	}
}

// Identifier returns this resource's registry key.
func (r *ProtectedResource) Identifier() string { return r.id }

// Snapshot is a point-in-time troubleshooting view of a
// ProtectedResource, for CLIs and dashboards that poll a Registry
// rather than subscribing to its Events.
type Snapshot struct {
	Identifier string
	Strategy   string // "classic", "adaptive", or "dual"

	Classic  *breaker.Diagnostics
	Adaptive *breaker.AdaptiveMetrics
	Dual     *breaker.DualMetrics
}

// Snapshot returns a Snapshot reflecting this resource's breaker type
// and current readings. The breaker field matching Strategy is set;
// the others are nil.
func (r *ProtectedResource) Snapshot() Snapshot {
	s := Snapshot{Identifier: r.id, Strategy: "none"}
	switch b := r.brk.(type) {
	case *breaker.ClassicBreaker:
		s.Strategy = "classic"
		d := b.Diagnostics()
		s.Classic = &d
	case *breaker.AdaptiveBreaker:
		s.Strategy = "adaptive"
		m := b.Metrics()
		s.Adaptive = &m
	case *breaker.DualBreaker:
		s.Strategy = "dual"
		m := b.Metrics()
		s.Dual = &m
	}
	return s
}

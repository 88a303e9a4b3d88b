package breaker

import (
	"sync"
	"time"

	"github.com/vnykmshr/guardrail/internal/logging"
)

// DualMetrics is the fan-out metrics surface: which breaker is
// currently authoritative, plus each breaker's own metrics.
type DualMetrics struct {
	Active   string // "legacy" or "adaptive"
	Legacy   ClassicMetrics
	Adaptive AdaptiveMetrics
}

// ClassicMetrics mirrors the diagnostics surface of ClassicBreaker for
// inclusion in DualMetrics.
type ClassicMetrics struct {
	State     State
	LastError error
}

// Selector decides, per call, whether the adaptive breaker is
// authoritative (true) or the legacy (classic) one is (false). A
// selector that panics is treated as "use legacy";
// selector panics must never propagate to the caller.
type Selector func() (useAdaptive bool)

// DualBreaker runs a classic and an adaptive breaker side by side.
// Both receive every outcome regardless of which is authoritative;
// only the authoritative breaker's Admit decides whether a call
// proceeds. Metrics reports the last error of both breakers, each in
// its own section; it does not single out the authoritative one's.
type DualBreaker struct {
	name     string
	legacy   *ClassicBreaker
	adaptive *AdaptiveBreaker
	selector Selector

	mu            sync.Mutex
	legacyLastErr error
}

// NewDual constructs a DualBreaker wrapping the given classic and
// adaptive breakers with the given authority selector.
func NewDual(name string, legacy *ClassicBreaker, adaptive *AdaptiveBreaker, selector Selector) *DualBreaker {
	return &DualBreaker{name: name, legacy: legacy, adaptive: adaptive, selector: selector}
}

// useAdaptive evaluates the selector, recovering a panic as "use
// legacy".
func (d *DualBreaker) useAdaptive() (result bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.CallbackPanic(d.name, "selector", r)
			result = false
		}
	}()
	return d.selector()
}

// Admit asks whichever breaker is currently authoritative.
func (d *DualBreaker) Admit() Admission {
	if d.useAdaptive() {
		return d.adaptive.Admit()
	}
	return d.legacy.Admit()
}

// RecordSuccess reports the outcome to both breakers.
func (d *DualBreaker) RecordSuccess(latency time.Duration) {
	d.legacy.RecordSuccess(latency)
	d.adaptive.RecordSuccess(latency)
}

// RecordFailure reports the outcome to both breakers and remembers it
// as the legacy breaker's last error for Metrics.
func (d *DualBreaker) RecordFailure(latency time.Duration) {
	d.mu.Lock()
	d.legacyLastErr = ErrAdaptiveTripped
	d.mu.Unlock()

	d.legacy.RecordFailure(latency)
	d.adaptive.RecordFailure(latency)
}

// Reset resets both breakers.
func (d *DualBreaker) Reset() {
	d.mu.Lock()
	d.legacyLastErr = nil
	d.mu.Unlock()
	d.legacy.Reset()
	d.adaptive.Reset()
}

// Destroy tears down both breakers.
func (d *DualBreaker) Destroy() {
	d.legacy.Destroy()
	d.adaptive.Destroy()
}

// IsHalfOpen reports the legacy breaker's half-open status; the
// adaptive breaker has no discrete state to contribute.
func (d *DualBreaker) IsHalfOpen() bool {
	return d.legacy.IsHalfOpen()
}

// Metrics returns which breaker is currently authoritative plus each
// breaker's own metrics.
func (d *DualBreaker) Metrics() DualMetrics {
	active := "legacy"
	if d.useAdaptive() {
		active = "adaptive"
	}

	d.mu.Lock()
	legacyErr := d.legacyLastErr
	d.mu.Unlock()

	return DualMetrics{
		Active: active,
		Legacy: ClassicMetrics{
			State:     d.legacy.CurrentState(),
			LastError: legacyErr,
		},
		Adaptive: d.adaptive.Metrics(),
	}
}

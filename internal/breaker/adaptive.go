package breaker

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/vnykmshr/guardrail/internal/logging"
	"github.com/vnykmshr/guardrail/internal/pidctl"
	"github.com/vnykmshr/guardrail/internal/quantile"
	"github.com/vnykmshr/guardrail/internal/smoother"
)

// ErrAdaptiveTripped is the LastError surfaced by an AdaptiveBreaker's
// Metrics after it has recorded a counted failure.
var ErrAdaptiveTripped = errors.New("breaker: adaptive breaker recorded a failure")

// AdaptiveSettings configures an AdaptiveBreaker.
type AdaptiveSettings struct {
	Name string

	InitialAlpha    float64
	SmootherCap     float64
	TargetErrorRate float64
	TargetLatencyMS float64

	Kp, Ki, Kd float64

	// QuantileP is the latency quantile tracked by the P² estimator;
	// defaults to 0.99 when zero.
	QuantileP float64

	PingInterval time.Duration
	// PingProbe, when non-nil, is invoked every PingInterval by a
	// background goroutine; its (err, latency) outcome is fed into the
	// smoother and quantile exactly like a real call.
	PingProbe func() (err error, latency time.Duration)
}

// AdaptiveMetrics is the metrics surface reported by AdaptiveBreaker.
type AdaptiveMetrics struct {
	RejectionRate float64
	ErrorRate     float64
	LatencyP99    float64
	LastError     error
}

// AdaptiveBreaker has no discrete state; a single scalar rejection
// probability, driven by a PID controller over a smoothed error rate
// and a latency quantile, is the entire state. Admission draws a
// uniform random number and admits when it is at least the rejection
// probability.
type AdaptiveBreaker struct {
	settings AdaptiveSettings

	mu            sync.Mutex
	errorSmoother *smoother.EWMA
	latencyQ      *quantile.Estimator
	pid           *pidctl.Controller
	rejectionRate float64
	lastError     error

	rng *rand.Rand

	stopCh  chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// NewAdaptive constructs an AdaptiveBreaker and, if PingProbe is set,
// starts its background prober goroutine.
func NewAdaptive(s AdaptiveSettings) *AdaptiveBreaker {
	if s.QuantileP == 0 {
		s.QuantileP = 0.99
	}

	es, err := smoother.New(0, s.InitialAlpha, s.SmootherCap)
	if err != nil {
		// An alpha outside (0, 0.5) falls back to a conservative
		// default rather than panicking inside a constructor.
		es, _ = smoother.New(0, 0.1, s.SmootherCap)
	}

	a := &AdaptiveBreaker{
		settings:      s,
		errorSmoother: es,
		latencyQ:      quantile.New(s.QuantileP),
		pid:           pidctl.New(s.Kp, s.Ki, s.Kd),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		stopCh:        make(chan struct{}),
	}

	if s.PingProbe != nil && s.PingInterval > 0 {
		a.wg.Add(1)
		go a.proberLoop()
	}

	return a
}

// proberLoop is the single background worker per adaptive breaker; it
// stops as soon as stopCh is closed by Destroy.
func (a *AdaptiveBreaker) proberLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.settings.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.runProbe()
		}
	}
}

func (a *AdaptiveBreaker) runProbe() {
	defer func() {
		if r := recover(); r != nil {
			logging.CallbackPanic(a.settings.Name, "ping_probe", r)
		}
	}()

	start := time.Now()
	err, latency := a.settings.PingProbe()
	if latency == 0 {
		latency = time.Since(start)
	}

	if err != nil {
		a.RecordFailure(latency)
	} else {
		a.RecordSuccess(latency)
	}
}

// Admit draws a uniform u in [0,1) and admits when u >= current
// rejection rate; r=0 admits everything, r=1 rejects everything.
func (a *AdaptiveBreaker) Admit() Admission {
	a.mu.Lock()
	u := a.rng.Float64()
	r := a.rejectionRate
	a.mu.Unlock()

	if u >= r {
		return Admitted
	}
	return Rejected
}

// RecordSuccess folds a zero-error observation and the latency into
// the smoother/quantile and ticks the controller.
func (a *AdaptiveBreaker) RecordSuccess(latency time.Duration) {
	a.observe(0, latency, nil)
}

// RecordFailure folds a one-error observation and the latency into
// the smoother/quantile and ticks the controller.
func (a *AdaptiveBreaker) RecordFailure(latency time.Duration) {
	a.observe(1, latency, ErrAdaptiveTripped)
}

func (a *AdaptiveBreaker) observe(errSample float64, latency time.Duration, recordedErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_ = a.errorSmoother.AddObservation(errSample)
	a.latencyQ.AddObservation(float64(latency.Milliseconds()))
	if recordedErr != nil {
		a.lastError = recordedErr
	}

	errRate := a.errorSmoother.Forecast()
	latencyQ := a.latencyQ.Estimate()

	errOvershoot := errRate - a.settings.TargetErrorRate
	latencyOvershoot := 0.0
	if a.settings.TargetLatencyMS > 0 {
		latencyOvershoot = (latencyQ - a.settings.TargetLatencyMS) / a.settings.TargetLatencyMS
	}
	weighted := errOvershoot + latencyOvershoot

	a.rejectionRate = a.pid.Tick(weighted)
}

// Metrics returns the current rejection rate, smoothed error rate,
// latency p-quantile, and last recorded error.
func (a *AdaptiveBreaker) Metrics() AdaptiveMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AdaptiveMetrics{
		RejectionRate: a.rejectionRate,
		ErrorRate:     a.errorSmoother.Forecast(),
		LatencyP99:    a.latencyQ.Estimate(),
		LastError:     a.lastError,
	}
}

// Reset returns the smoother, quantile estimator and controller to
// their initial state.
func (a *AdaptiveBreaker) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errorSmoother.Reset()
	a.latencyQ = quantile.New(a.settings.QuantileP)
	a.pid.Reset()
	a.rejectionRate = 0
	a.lastError = nil
}

// Destroy stops the background prober and joins it. After Destroy
// returns, Stopped reports true.
func (a *AdaptiveBreaker) Destroy() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()

	close(a.stopCh)
	a.wg.Wait()
}

// Stopped reports whether Destroy has been called.
func (a *AdaptiveBreaker) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// IsHalfOpen always reports false: the adaptive breaker has no
// discrete state.
func (a *AdaptiveBreaker) IsHalfOpen() bool { return false }

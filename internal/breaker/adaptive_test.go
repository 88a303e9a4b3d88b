package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveAdmitsEverythingAtZeroRejectionRate(t *testing.T) {
	a := NewAdaptive(AdaptiveSettings{Name: "a", InitialAlpha: 0.1, SmootherCap: 1, Kp: 0, Ki: 0, Kd: 0})
	for i := 0; i < 100; i++ {
		assert.Equal(t, Admitted, a.Admit())
	}
}

func TestAdaptiveRejectsEverythingAtFullRejectionRate(t *testing.T) {
	a := NewAdaptive(AdaptiveSettings{Name: "a", InitialAlpha: 0.1, SmootherCap: 1, Kp: 0, Ki: 0, Kd: 0})
	a.mu.Lock()
	a.rejectionRate = 1
	a.mu.Unlock()

	for i := 0; i < 100; i++ {
		assert.Equal(t, Rejected, a.Admit())
	}
}

func TestAdaptiveAdmissionRateConvergesToOneMinusRejectionRate(t *testing.T) {
	a := NewAdaptive(AdaptiveSettings{Name: "a", InitialAlpha: 0.1, SmootherCap: 1})
	a.mu.Lock()
	a.rejectionRate = 0.3
	a.mu.Unlock()

	admitted := 0
	const trials = 20000
	for i := 0; i < trials; i++ {
		if a.Admit() == Admitted {
			admitted++
		}
	}

	rate := float64(admitted) / float64(trials)
	assert.InDelta(t, 0.7, rate, 0.02)
}

func TestAdaptiveRecordFailureSetsLastError(t *testing.T) {
	a := NewAdaptive(AdaptiveSettings{Name: "a", InitialAlpha: 0.2, SmootherCap: 1, Kp: 1, Ki: 0.1, Kd: 0})
	a.RecordFailure(10 * time.Millisecond)
	m := a.Metrics()
	assert.True(t, errors.Is(m.LastError, ErrAdaptiveTripped))
	assert.Greater(t, m.ErrorRate, 0.0)
}

func TestAdaptiveProberFeedsSmootherAndIsStoppedByDestroy(t *testing.T) {
	probed := make(chan struct{}, 10)
	a := NewAdaptive(AdaptiveSettings{
		Name:         "a",
		InitialAlpha: 0.3,
		SmootherCap:  1,
		PingInterval: 5 * time.Millisecond,
		PingProbe: func() (error, time.Duration) {
			select {
			case probed <- struct{}{}:
			default:
			}
			return nil, time.Millisecond
		},
	})

	select {
	case <-probed:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("prober did not fire within timeout")
	}

	a.Destroy()
	assert.True(t, a.Stopped())
}

func TestAdaptiveResetClearsSignals(t *testing.T) {
	a := NewAdaptive(AdaptiveSettings{Name: "a", InitialAlpha: 0.2, SmootherCap: 1, Kp: 1, Ki: 0.1, Kd: 0})
	a.RecordFailure(time.Millisecond)
	require.Greater(t, a.Metrics().ErrorRate, 0.0)

	a.Reset()
	m := a.Metrics()
	assert.Equal(t, 0.0, m.ErrorRate)
	assert.Nil(t, m.LastError)
}

func TestAdaptiveIsHalfOpenAlwaysFalse(t *testing.T) {
	a := NewAdaptive(AdaptiveSettings{Name: "a", InitialAlpha: 0.1, SmootherCap: 1})
	assert.False(t, a.IsHalfOpen())
}

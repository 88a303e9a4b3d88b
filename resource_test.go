package guardrail

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend failed")

func TestAcquireOpenCloseCycle(t *testing.T) {
	r := newResource("t", Options{
		Tickets:               4,
		Timeout:               time.Second,
		ErrorThreshold:        2,
		ErrorThresholdTimeout: 5 * time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          20 * time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		err := r.Acquire(func() error { return errBackend })
		assert.ErrorIs(t, err, errBackend)
	}

	err := r.Acquire(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpenCircuit)

	time.Sleep(30 * time.Millisecond)

	called := false
	err = r.Acquire(func() error { called = true; return nil })
	require.NoError(t, err)
	assert.True(t, called)

	err = r.Acquire(func() error { return nil })
	assert.NoError(t, err)
}

func TestAcquireBulkheadContention(t *testing.T) {
	r := newResource("t", Options{
		Tickets:               1,
		Timeout:               0,
		ErrorThreshold:        100,
		ErrorThresholdTimeout: time.Minute,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Minute,
	})

	holding := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Acquire(func() error {
			close(holding)
			<-release
			return nil
		})
	}()

	<-holding
	err := r.Acquire(func() error { return nil })
	close(release)
	wg.Wait()

	assert.ErrorIs(t, err, ErrResourceOccupied)
}

func TestUncountedErrorDoesNotTripBreaker(t *testing.T) {
	r := newResource("t", Options{
		Tickets:               4,
		Timeout:               time.Second,
		ErrorThreshold:        1,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
		Exceptions:            func(error) bool { return false },
	})

	for i := 0; i < 5; i++ {
		err := r.Acquire(func() error { return errBackend })
		assert.ErrorIs(t, err, errBackend)
	}

	err := r.Acquire(func() error { return nil })
	assert.NoError(t, err, "uncounted errors must never trip the breaker")
}

func TestWithFallbackConvertsCountedError(t *testing.T) {
	r := newResource("t", Options{
		Tickets:               4,
		Timeout:               time.Second,
		ErrorThreshold:        100,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
	})

	fallback := errors.New("fallback value")
	err := r.WithFallback(fallback, func() error { return errBackend })
	assert.Equal(t, fallback, err)
}

func TestSubscriberReceivesSuccessEvent(t *testing.T) {
	r := newResource("t", Options{
		Tickets:               1,
		Timeout:               0,
		ErrorThreshold:        100,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
	})

	var mu sync.Mutex
	var kinds []EventKind
	r.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	require.NoError(t, r.Acquire(func() error { return nil }))

	mu.Lock()
	assert.Contains(t, kinds, EventSuccess)
	mu.Unlock()
}

func TestSubscriberPanicDoesNotAffectCall(t *testing.T) {
	r := newResource("t", Options{
		Tickets:               4,
		Timeout:               time.Second,
		ErrorThreshold:        100,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
	})

	r.Subscribe(func(Event) { panic("subscriber exploded") })

	assert.NotPanics(t, func() {
		err := r.Acquire(func() error { return nil })
		assert.NoError(t, err)
	})
}

func TestAdaptiveResourceAdmitsCallsUnderLowErrorRate(t *testing.T) {
	r := newResource("t", Options{
		BulkheadDisabled:       true,
		CircuitBreakerDisabled: false,
		AdaptiveCircuitBreaker: true,
		InitialAlpha:           0.1,
		SmootherCap:            1,
		TargetErrorRate:        0.5,
		Kp:                     1,
	})
	defer r.Destroy()

	for i := 0; i < 50; i++ {
		require.NoError(t, r.Acquire(func() error { return nil }))
	}
}

func TestSnapshotReflectsBreakerStrategy(t *testing.T) {
	classic := newResource("classic", Options{
		Tickets:               4,
		Timeout:               time.Second,
		ErrorThreshold:        2,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
	})
	defer classic.Destroy()
	cs := classic.Snapshot()
	assert.Equal(t, "classic", cs.Strategy)
	require.NotNil(t, cs.Classic)
	assert.Nil(t, cs.Adaptive)

	adaptive := newResource("adaptive", Options{
		BulkheadDisabled:       true,
		AdaptiveCircuitBreaker: true,
		InitialAlpha:           0.1,
		SmootherCap:            1,
		TargetErrorRate:        0.5,
		Kp:                     1,
	})
	defer adaptive.Destroy()
	as := adaptive.Snapshot()
	assert.Equal(t, "adaptive", as.Strategy)
	require.NotNil(t, as.Adaptive)
	assert.Nil(t, as.Classic)

	dual := newResource("dual", Options{
		BulkheadDisabled:      true,
		DualCircuitBreaker:    true,
		ErrorThreshold:        2,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
		InitialAlpha:          0.1,
		SmootherCap:           1,
		TargetErrorRate:       0.5,
		Kp:                    1,
		DualSelector:          func() bool { return false },
	})
	defer dual.Destroy()
	ds := dual.Snapshot()
	assert.Equal(t, "dual", ds.Strategy)
	require.NotNil(t, ds.Dual)
}

package guardrail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageLevelRegisterIsIdempotentAndResettable(t *testing.T) {
	defer Reset()

	a := Register("facade-svc", testOptions())
	b := Register("facade-svc", testOptions())
	assert.Same(t, a, b)

	Reset()
	assert.Len(t, Resources(), 0)
}

func TestPackageLevelSubscribeOnUnknownResourceIsNoop(t *testing.T) {
	defer Reset()
	assert.NotPanics(t, func() {
		Unsubscribe("does-not-exist", Subscribe("does-not-exist", func(Event) {}))
	})
}

func TestPackageLevelRegisteredResourceAcquiresWithZeroTimeout(t *testing.T) {
	defer Reset()
	res := Register("facade-errs", Options{
		Tickets:               1,
		Timeout:               0,
		ErrorThreshold:        100,
		ErrorThresholdTimeout: time.Second,
		SuccessThreshold:      1,
		ErrorTimeout:          time.Second,
	})

	err := res.Acquire(func() error { return nil })
	require.NoError(t, err)
}

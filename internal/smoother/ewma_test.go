package smoother

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsAlphaOutsideOpenInterval(t *testing.T) {
	_, err := New(0, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidAlpha)

	_, err = New(0, 0.5, 1)
	assert.ErrorIs(t, err, ErrInvalidAlpha)

	_, err = New(0, -0.1, 1)
	assert.ErrorIs(t, err, ErrInvalidAlpha)
}

func TestForecastOfConstantObservationsEqualsThatConstant(t *testing.T) {
	for _, alpha := range []float64{0.05, 0.1, 0.3, 0.49} {
		e, err := New(0.01, alpha, 1)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			require.NoError(t, e.AddObservation(0.01))
		}
		assert.InDelta(t, 0.01, e.Forecast(), 1e-9)
	}
}

func TestObservationsAboveCapAreDroppedEntirely(t *testing.T) {
	e, err := New(0.01, 0.1, 0.1)
	require.NoError(t, err)

	for i := 0; i < 180; i++ {
		require.NoError(t, e.AddObservation(0.2))
	}
	assert.InDelta(t, 0.01, e.Forecast(), 1e-12, "forecast must be unchanged by dropped outliers")

	for i := 0; i < 20; i++ {
		require.NoError(t, e.AddObservation(0.05))
	}
	assert.Greater(t, e.Forecast(), 0.01, "forecast must strictly increase once real observations arrive")
}

func TestAddObservationRejectsNegativeInput(t *testing.T) {
	e, err := New(0.01, 0.1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, e.AddObservation(-0.1), ErrNegativeObservation)
}

func TestAddObservationAcceptsZero(t *testing.T) {
	e, err := New(0.01, 0.4, 1)
	require.NoError(t, err)
	require.NoError(t, e.AddObservation(0))
	assert.Less(t, e.Forecast(), 0.01)
}

func TestAlphaStepsDownAtNinetyAndOneEighty(t *testing.T) {
	e, err := New(0, 0.2, 1)
	require.NoError(t, err)

	for i := 0; i < 89; i++ {
		require.NoError(t, e.AddObservation(0))
	}
	assert.InDelta(t, 0.2, e.alpha, 1e-12)

	require.NoError(t, e.AddObservation(0))
	assert.InDelta(t, 0.1, e.alpha, 1e-12)

	for i := 0; i < 90; i++ {
		require.NoError(t, e.AddObservation(0))
	}
	assert.InDelta(t, 0.05, e.alpha, 1e-12)
}

func TestResetRestoresInitialValueAndAlpha(t *testing.T) {
	e, err := New(0.01, 0.2, 1)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		require.NoError(t, e.AddObservation(0.5))
	}
	require.NotEqual(t, 0.01, e.Forecast())

	e.Reset()
	assert.InDelta(t, 0.01, e.Forecast(), 1e-12)
	assert.InDelta(t, 0.2, e.alpha, 1e-12)
}

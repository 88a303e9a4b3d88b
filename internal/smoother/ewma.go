// Package smoother implements the exponential smoother (EWMA) that
// feeds the adaptive circuit breaker's error-rate signal: a
// capped-outlier input filter paired with a stepped-down learning rate
// schedule, so a single incident spike cannot swamp a slow-moving
// forecast.
package smoother

import "errors"

// ErrInvalidAlpha is returned by New when initialAlpha is outside (0, 0.5).
var ErrInvalidAlpha = errors.New("smoother: initial_alpha must be in (0, 0.5)")

// ErrNegativeObservation is returned by AddObservation for x < 0.
var ErrNegativeObservation = errors.New("smoother: observation must be >= 0")

// stepDownAt are the observation counts at which alpha halves. After
// the last step, alpha stays at its floor.
var stepDownAt = [2]int{90, 180}

// EWMA is an exponentially weighted moving average with an
// outlier-drop input filter and a stepped learning-rate schedule.
type EWMA struct {
	initialValue float64
	initialAlpha float64
	capValue     float64

	value float64
	alpha float64
	seen  int
}

// New constructs an EWMA seeded at initialValue, with learning rate
// initialAlpha (must be in (0, 0.5)) and observations above capValue
// dropped rather than clamped.
func New(initialValue, initialAlpha, capValue float64) (*EWMA, error) {
	if !(initialAlpha > 0 && initialAlpha < 0.5) {
		return nil, ErrInvalidAlpha
	}
	return &EWMA{
		initialValue: initialValue,
		initialAlpha: initialAlpha,
		capValue:     capValue,
		value:        initialValue,
		alpha:        initialAlpha,
	}, nil
}

// AddObservation folds x into the forecast unless x exceeds the
// configured cap, in which case it is dropped entirely: the forecast
// and the observation count are both left unchanged, so an outlier
// never shifts the learning-rate schedule either.
func (e *EWMA) AddObservation(x float64) error {
	if x < 0 {
		return ErrNegativeObservation
	}
	if x > e.capValue {
		return nil
	}

	e.seen++
	e.value = e.alpha*x + (1-e.alpha)*e.value
	e.alpha = e.alphaForCount(e.seen)
	return nil
}

// alphaForCount applies the step-down schedule: halve at the 90th
// observation, halve again at the 180th, then hold.
func (e *EWMA) alphaForCount(n int) float64 {
	alpha := e.initialAlpha
	for _, step := range stepDownAt {
		if n >= step {
			alpha /= 2
		}
	}
	return alpha
}

// Forecast returns the current smoothed value.
func (e *EWMA) Forecast() float64 { return e.value }

// Value is an alias for Forecast.
func (e *EWMA) Value() float64 { return e.Forecast() }

// Reset returns the smoother to its initial value and learning rate.
func (e *EWMA) Reset() {
	e.value = e.initialValue
	e.alpha = e.initialAlpha
	e.seen = 0
}

package quantile

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateIsExactBeforeFiveObservations(t *testing.T) {
	e := New(0.5)
	e.AddObservation(3)
	e.AddObservation(1)
	assert.InDelta(t, 2.0, e.Estimate(), 1e-9)
}

func TestMedianOfNormalSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := New(0.5)

	var samples []float64
	for i := 0; i < 1000; i++ {
		x := rng.NormFloat64()
		samples = append(samples, x)
		e.AddObservation(x)
	}

	exact := exactQuantile(samples, 0.5)
	assert.InDelta(t, exact, e.Estimate(), 0.1)
}

func TestMedianOfExponentialSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := New(0.5)

	for i := 0; i < 1000; i++ {
		u := rng.Float64()
		x := -math.Log(1-u) * 1.0 // Exponential(1) via inverse transform
		e.AddObservation(x)
	}

	assert.InDelta(t, math.Ln2, e.Estimate(), 0.1)
}

func TestMedianOfBetaSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	e := New(0.5)

	var samples []float64
	for i := 0; i < 1000; i++ {
		// Beta(a,b) == X/(X+Y) for X ~ Gamma(a,1), Y ~ Gamma(b,1).
		x := sampleGamma(rng, 10)
		y := sampleGamma(rng, 2)
		samples = append(samples, x/(x+y))
	}
	for _, s := range samples {
		e.AddObservation(s)
	}

	assert.InDelta(t, exactQuantile(samples, 0.5), e.Estimate(), 0.05)
}

// sampleGamma draws from Gamma(k, 1) for integer k via the sum of k
// exponential(1) draws (valid since Gamma(k,1) is the sum of k iid
// Exponential(1) variables for integer k).
func sampleGamma(rng *rand.Rand, k int) float64 {
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += -math.Log(1 - rng.Float64())
	}
	return sum
}

func TestNewPanicsOutsideOpenUnitInterval(t *testing.T) {
	require.Panics(t, func() { New(0) })
	require.Panics(t, func() { New(1) })
	require.Panics(t, func() { New(-0.1) })
}

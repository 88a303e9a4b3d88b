// Package quantile implements the P² (piecewise-parabolic) online
// single-quantile estimator of Jain & Chlamtac, used by the adaptive
// circuit breaker to track a latency quantile in O(1) memory without
// retaining observations.
package quantile

import "sort"

// Estimator maintains a single quantile estimate over an unbounded
// stream of observations using five markers. Before the fifth
// observation it falls back to the exact sorted quantile of whatever
// has been seen so far.
type Estimator struct {
	p float64

	n         int
	initial   []float64 // buffered observations until n == 5
	q         [5]float64
	pos       [5]int // marker positions (1-indexed conceptually, stored 0-indexed)
	desired   [5]float64
	increment [5]float64
}

// New creates a P² estimator for quantile p, where 0 < p < 1.
func New(p float64) *Estimator {
	if p <= 0 || p >= 1 {
		panic("quantile: p must be in (0, 1)")
	}
	e := &Estimator{p: p, initial: make([]float64, 0, 5)}
	e.increment = [5]float64{0, p / 2, p, (1 + p) / 2, 1}
	return e
}

// AddObservation feeds a new sample into the estimator.
func (e *Estimator) AddObservation(x float64) {
	e.n++

	if len(e.initial) < 5 {
		e.initial = append(e.initial, x)
		if len(e.initial) == 5 {
			e.initialize()
		}
		return
	}

	e.update(x)
}

// Estimate returns the current quantile estimate. Before 5
// observations have been seen, it returns the exact sorted quantile of
// the observations so far.
func (e *Estimator) Estimate() float64 {
	if e.n == 0 {
		return 0
	}
	if len(e.initial) < 5 {
		return exactQuantile(e.initial, e.p)
	}
	return e.q[2]
}

// exactQuantile returns the p-quantile of samples by linear
// interpolation on the sorted order statistics (nearest-rank with
// interpolation), used only for the n<5 warm-up period.
func exactQuantile(samples []float64, p float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// initialize sets up the five markers from the first five observations,
// sorted ascending, with ideal positions per Jain & Chlamtac.
func (e *Estimator) initialize() {
	sorted := append([]float64(nil), e.initial...)
	sort.Float64s(sorted)
	for i := 0; i < 5; i++ {
		e.q[i] = sorted[i]
		e.pos[i] = i + 1
	}
	e.desired = [5]float64{1, 1 + 2*e.p, 1 + 4*e.p, 3 + 2*e.p, 5}
}

// update performs one P² step for observation x, following marker
// positions q[0..4] with ideal positions desired[0..4].
func (e *Estimator) update(x float64) {
	// Find cell k such that q[k] <= x < q[k+1], adjusting extremes.
	var k int
	switch {
	case x < e.q[0]:
		e.q[0] = x
		k = 0
	case x < e.q[1]:
		k = 0
	case x < e.q[2]:
		k = 1
	case x < e.q[3]:
		k = 2
	case x < e.q[4]:
		k = 3
	default:
		e.q[4] = x
		k = 3
	}

	// Increment positions of markers at or after the insertion cell.
	for i := k + 1; i < 5; i++ {
		e.pos[i]++
	}
	for i := 0; i < 5; i++ {
		e.desired[i] += e.increment[i]
	}

	// Adjust heights of the three interior markers.
	for i := 1; i < 4; i++ {
		d := e.desired[i] - float64(e.pos[i])
		if (d >= 1 && e.pos[i+1]-e.pos[i] > 1) || (d <= -1 && e.pos[i-1]-e.pos[i] < -1) {
			dir := 1
			if d < 0 {
				dir = -1
			}

			qNew := e.parabolic(i, dir)
			if e.q[i-1] < qNew && qNew < e.q[i+1] {
				e.q[i] = qNew
			} else {
				e.q[i] = e.linear(i, dir)
			}
			e.pos[i] += dir
		}
	}
}

func (e *Estimator) parabolic(i, dir int) float64 {
	d := float64(dir)
	qp1, q, qm1 := e.q[i+1], e.q[i], e.q[i-1]
	np1, n, nm1 := float64(e.pos[i+1]), float64(e.pos[i]), float64(e.pos[i-1])

	return q + d/(np1-nm1)*(
		(n-nm1+d)*(qp1-q)/(np1-n)+
			(np1-n-d)*(q-qm1)/(n-nm1))
}

func (e *Estimator) linear(i, dir int) float64 {
	d := float64(dir)
	qd := e.q[i+dir]
	q := e.q[i]
	nd := float64(e.pos[i+dir])
	n := float64(e.pos[i])
	return q + d*(qd-q)/(nd-n)
}

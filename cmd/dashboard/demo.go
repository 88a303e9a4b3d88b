package main

import (
	"errors"
	"math/rand"
	"time"

	"github.com/vnykmshr/guardrail"
)

var errDemoBackend = errors.New("demo backend unavailable")

// startDemoTraffic registers a classic, an adaptive, and a dual
// resource against reg and drives synthetic traffic through each in
// its own goroutine, so a standalone run of the dashboard has
// something live to render.
func startDemoTraffic(reg *guardrail.Registry) {
	classic := reg.Register("payments-api", guardrail.Options{
		Tickets:               4,
		Timeout:               200 * time.Millisecond,
		ErrorThreshold:        5,
		ErrorThresholdTimeout: 10 * time.Second,
		SuccessThreshold:      2,
		ErrorTimeout:          3 * time.Second,
	})

	adaptive := reg.Register("search-api", guardrail.Options{
		Tickets:                8,
		Timeout:                200 * time.Millisecond,
		CircuitBreakerDisabled: false,
		AdaptiveCircuitBreaker: true,
		InitialAlpha:           0.1,
		SmootherCap:            1,
		TargetErrorRate:        0.1,
		TargetLatencyMS:        50,
		Kp:                     1.5,
		Ki:                     0.1,
	})

	dual := reg.Register("recommendations-api", guardrail.Options{
		Tickets:               4,
		Timeout:               200 * time.Millisecond,
		DualCircuitBreaker:    true,
		ErrorThreshold:        5,
		ErrorThresholdTimeout: 10 * time.Second,
		SuccessThreshold:      2,
		ErrorTimeout:          3 * time.Second,
		InitialAlpha:          0.1,
		SmootherCap:           1,
		TargetErrorRate:       0.1,
		Kp:                    1.5,
		DualSelector:          func() bool { return rand.Float64() < 0.5 },
	})

	go driveTraffic(classic, 0.15)
	go driveTraffic(adaptive, 0.05)
	go driveTraffic(dual, 0.1)
}

func driveTraffic(res *guardrail.ProtectedResource, failRate float64) {
	for {
		_ = res.Acquire(func() error {
			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			if rand.Float64() < failRate {
				return errDemoBackend
			}
			return nil
		})
		time.Sleep(50 * time.Millisecond)
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/vnykmshr/guardrail"
)

// resourceConfig is the config-file shape for one resource, mapped
// into a guardrail.Options. Durations are given as Go duration
// strings ("250ms", "2s") and parsed by toOptions.
type resourceConfig struct {
	Tickets int     `mapstructure:"tickets"`
	Quota   float64 `mapstructure:"quota"`
	Timeout string  `mapstructure:"timeout"`

	ErrorThreshold        int    `mapstructure:"error_threshold"`
	ErrorThresholdTimeout string `mapstructure:"error_threshold_timeout"`
	SuccessThreshold      int    `mapstructure:"success_threshold"`
	ErrorTimeout          string `mapstructure:"error_timeout"`

	BulkheadDisabled       bool `mapstructure:"bulkhead_disabled"`
	CircuitBreakerDisabled bool `mapstructure:"circuit_breaker_disabled"`
	AdaptiveCircuitBreaker bool `mapstructure:"adaptive_circuit_breaker"`

	InitialAlpha    float64 `mapstructure:"initial_alpha"`
	SmootherCap     float64 `mapstructure:"smoother_cap"`
	TargetErrorRate float64 `mapstructure:"target_error_rate"`
	TargetLatencyMS float64 `mapstructure:"target_latency_ms"`
	Kp              float64 `mapstructure:"kp"`
	Ki              float64 `mapstructure:"ki"`
	Kd              float64 `mapstructure:"kd"`
}

func (c resourceConfig) toOptions() (guardrail.Options, error) {
	opts := guardrail.Options{
		Tickets:                c.Tickets,
		Quota:                  c.Quota,
		ErrorThreshold:         c.ErrorThreshold,
		SuccessThreshold:       c.SuccessThreshold,
		BulkheadDisabled:       c.BulkheadDisabled,
		CircuitBreakerDisabled: c.CircuitBreakerDisabled,
		AdaptiveCircuitBreaker: c.AdaptiveCircuitBreaker,
		InitialAlpha:           c.InitialAlpha,
		SmootherCap:            c.SmootherCap,
		TargetErrorRate:        c.TargetErrorRate,
		TargetLatencyMS:        c.TargetLatencyMS,
		Kp:                     c.Kp,
		Ki:                     c.Ki,
		Kd:                     c.Kd,
	}

	var err error
	if opts.Timeout, err = parseDuration(c.Timeout); err != nil {
		return opts, fmt.Errorf("timeout: %w", err)
	}
	if opts.ErrorThresholdTimeout, err = parseDuration(c.ErrorThresholdTimeout); err != nil {
		return opts, fmt.Errorf("error_threshold_timeout: %w", err)
	}
	if opts.ErrorTimeout, err = parseDuration(c.ErrorTimeout); err != nil {
		return opts, fmt.Errorf("error_timeout: %w", err)
	}
	return opts, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

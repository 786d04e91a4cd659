package resilience

import (
	"strings"
	"time"
)

// Preset names accepted by Preset.
const (
	PresetDefault        = "default"
	PresetDisabled       = "disabled"
	PresetHighThroughput = "high_throughput"
)

// DefaultConfig returns the general-purpose preset: 100 req/s with a burst
// of 200, three retries from 100ms up to 10s, and a breaker that opens after
// five failures for 30s.
func DefaultConfig() Config {
	return Config{
		Name: defaultName,
		RateLimiter: RateLimiterConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Retry: RetryConfig{
			Enabled:              true,
			MaxRetries:           3,
			BaseDelay:            100 * time.Millisecond,
			MaxDelay:             10 * time.Second,
			ExponentialBase:      2,
			Jitter:               0.1,
			RetryableStatusCodes: append([]int(nil), DefaultRetryableStatusCodes...),
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		},
		Bulkhead: BulkheadConfig{
			MaxConcurrent: defaultBulkheadSize,
		},
		CollectMetrics:    true,
		MetricsWindowSize: defaultMetricsWindowSize,
		AcquireTimeout:    defaultAcquireTimeout,
	}
}

// DisabledConfig returns a preset with every component switched off.
// Calls pass straight through to the operation.
func DisabledConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimiter.Enabled = false
	cfg.Retry.Enabled = false
	cfg.CircuitBreaker.Enabled = false
	cfg.Bulkhead.Enabled = false
	cfg.CollectMetrics = false
	return cfg
}

// HighThroughputConfig returns a preset for busy clients: 1000 req/s with a
// burst of 2000, two quick retries, and a more tolerant breaker that
// recovers after 15s.
func HighThroughputConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimiter.RequestsPerSecond = 1000
	cfg.RateLimiter.BurstSize = 2000
	cfg.Retry.MaxRetries = 2
	cfg.Retry.BaseDelay = 50 * time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Second
	cfg.CircuitBreaker.FailureThreshold = 10
	cfg.CircuitBreaker.SuccessThreshold = 3
	cfg.CircuitBreaker.Timeout = 15 * time.Second
	return cfg
}

// Preset returns a fresh copy of the named preset. Names are matched
// case-insensitively and accept '-' in place of '_'.
func Preset(name string) (Config, bool) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") {
	case "", PresetDefault:
		return DefaultConfig(), true
	case PresetDisabled:
		return DisabledConfig(), true
	case PresetHighThroughput:
		return HighThroughputConfig(), true
	default:
		return Config{}, false
	}
}

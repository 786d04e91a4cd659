package resilience

import "time"

// Health is a read-only snapshot of a Manager's components.
type Health struct {
	CircuitBreaker CircuitHealth   `json:"circuit_breaker"`
	RateLimiter    LimiterHealth   `json:"rate_limiter"`
	Bulkhead       *BulkheadHealth `json:"bulkhead,omitempty"`
	Metrics        *MetricsSummary `json:"metrics"`
}

// CircuitHealth describes the circuit breaker.
type CircuitHealth struct {
	Name             string        `json:"name"`
	Enabled          bool          `json:"enabled"`
	State            State         `json:"state"`
	Failures         int           `json:"failures"`
	TimeUntilRetry   time.Duration `json:"-"`
	TimeUntilRetryMs int64         `json:"time_until_retry_ms"`
}

// LimiterHealth describes the rate limiter.
type LimiterHealth struct {
	Enabled           bool    `json:"enabled"`
	AvailableTokens   float64 `json:"available_tokens"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BurstSize         int     `json:"burst_size"`
}

// BulkheadHealth describes the bulkhead when one is configured.
type BulkheadHealth struct {
	InUse         int   `json:"in_use"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected      int64 `json:"rejected"`
}

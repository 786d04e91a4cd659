package resilience

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/callguard/validation"
)

// DefaultRetryableStatusCodes are the upstream statuses retried by default.
var DefaultRetryableStatusCodes = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

const (
	defaultName              = "default"
	defaultMetricsWindowSize = 1000
	defaultAcquireTimeout    = 30 * time.Second
	defaultBulkheadSize      = 10
)

// RateLimiterConfig configures the token bucket.
type RateLimiterConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	// RequestsPerSecond is the bucket refill rate.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" json:"requests_per_second" validate:"gt=0"`
	// BurstSize is the bucket capacity.
	BurstSize int `yaml:"burst_size" mapstructure:"burst_size" json:"burst_size" validate:"gte=1"`
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	// FailureThreshold is the number of failures before opening the circuit.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold" json:"failure_threshold" validate:"gte=1"`
	// SuccessThreshold is the number of half-open successes needed to close it again.
	SuccessThreshold int `yaml:"success_threshold" mapstructure:"success_threshold" json:"success_threshold" validate:"gte=1"`
	// Timeout is how long the circuit stays open after the last failure.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	// OnStateChange is called after every transition, outside the breaker lock.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-" json:"-"`
}

// RetryConfig configures the attempt loop.
type RetryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" json:"max_retries" validate:"gte=0"`
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay" json:"base_delay" validate:"gte=0"`
	// MaxDelay caps the exponential delay before jitter is applied.
	MaxDelay time.Duration `yaml:"max_delay" mapstructure:"max_delay" json:"max_delay" validate:"gtefield=BaseDelay"`
	// ExponentialBase is the per-attempt multiplier.
	ExponentialBase float64 `yaml:"exponential_base" mapstructure:"exponential_base" json:"exponential_base" validate:"gte=1"`
	// Jitter is the relative random spread applied to each delay (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter" json:"jitter" validate:"gte=0,lte=1"`
	// RetryableStatusCodes lists the upstream statuses that are retried.
	RetryableStatusCodes []int `yaml:"retryable_status_codes" mapstructure:"retryable_status_codes" json:"retryable_status_codes" validate:"dive,gte=100,lte=599"`
}

// BulkheadConfig configures the optional concurrency limit.
type BulkheadConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	// MaxConcurrent is the maximum number of in-flight calls.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" json:"max_concurrent" validate:"gte=1"`
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" json:"max_wait" validate:"gte=0"`
}

// Config aggregates the settings of every component a Manager owns.
type Config struct {
	// Name identifies the manager; it is reported as the circuit name.
	Name           string               `yaml:"name" mapstructure:"name" json:"name"`
	RateLimiter    RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter" json:"rate_limiter"`
	Retry          RetryConfig          `yaml:"retry" mapstructure:"retry" json:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker" json:"circuit_breaker"`
	Bulkhead       BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead" json:"bulkhead"`
	CollectMetrics bool                 `yaml:"collect_metrics" mapstructure:"collect_metrics" json:"collect_metrics"`
	// MetricsWindowSize is the capacity of the sliding metrics window.
	MetricsWindowSize int `yaml:"metrics_window_size" mapstructure:"metrics_window_size" json:"metrics_window_size"`
	// AcquireTimeout bounds how long a call waits for a rate limiter token.
	AcquireTimeout time.Duration `yaml:"acquire_timeout" mapstructure:"acquire_timeout" json:"acquire_timeout"`
}

// ApplyDefaults fills unset fields with the default preset values.
// Boolean switches, jitter and retry counts are left as configured since
// their zero values are meaningful.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.RateLimiter.RequestsPerSecond <= 0 {
		c.RateLimiter.RequestsPerSecond = d.RateLimiter.RequestsPerSecond
	}
	if c.RateLimiter.BurstSize <= 0 {
		c.RateLimiter.BurstSize = d.RateLimiter.BurstSize
	}
	if c.CircuitBreaker.FailureThreshold <= 0 {
		c.CircuitBreaker.FailureThreshold = d.CircuitBreaker.FailureThreshold
	}
	if c.CircuitBreaker.SuccessThreshold <= 0 {
		c.CircuitBreaker.SuccessThreshold = d.CircuitBreaker.SuccessThreshold
	}
	if c.CircuitBreaker.Timeout <= 0 {
		c.CircuitBreaker.Timeout = d.CircuitBreaker.Timeout
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = 0
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = d.Retry.BaseDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if c.Retry.ExponentialBase <= 0 {
		c.Retry.ExponentialBase = d.Retry.ExponentialBase
	}
	if c.Retry.RetryableStatusCodes == nil {
		c.Retry.RetryableStatusCodes = append([]int(nil), DefaultRetryableStatusCodes...)
	}
	if c.Bulkhead.MaxConcurrent <= 0 {
		c.Bulkhead.MaxConcurrent = defaultBulkheadSize
	}
	if c.MetricsWindowSize <= 0 {
		c.MetricsWindowSize = defaultMetricsWindowSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = defaultAcquireTimeout
	}
}

// Validate checks the enabled sections against their struct tags.
func (c *Config) Validate() error {
	if c.RateLimiter.Enabled {
		if err := validation.Validate(c.RateLimiter); err != nil {
			return fmt.Errorf("resilience.rate_limiter: %w", err)
		}
	}
	if c.CircuitBreaker.Enabled {
		if err := validation.Validate(c.CircuitBreaker); err != nil {
			return fmt.Errorf("resilience.circuit_breaker: %w", err)
		}
	}
	if c.Retry.Enabled {
		if err := validation.Validate(c.Retry); err != nil {
			return fmt.Errorf("resilience.retry: %w", err)
		}
	}
	if c.Bulkhead.Enabled {
		if err := validation.Validate(c.Bulkhead); err != nil {
			return fmt.Errorf("resilience.bulkhead: %w", err)
		}
	}
	if c.MetricsWindowSize < 0 {
		return fmt.Errorf("resilience.metrics_window_size must not be negative (got: %d)", c.MetricsWindowSize)
	}
	return nil
}

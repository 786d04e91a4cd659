package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kbukum/callguard/resilience"
)

const resilienceKey = "resilience"

// ResilienceConfig selects a preset and overrides individual settings.
type ResilienceConfig struct {
	Preset            string `yaml:"preset" mapstructure:"preset" json:"preset"`
	resilience.Config `yaml:",inline" mapstructure:",squash"`
}

// ResiliencePresetDefaults seeds the resilience section with the values of
// the preset named at resilience.preset.
func ResiliencePresetDefaults(v *viper.Viper) error {
	name := v.GetString(resilienceKey + ".preset")
	preset, ok := resilience.Preset(name)
	if !ok {
		return fmt.Errorf("unknown resilience preset %q", name)
	}
	for key, value := range presetValues(preset) {
		v.SetDefault(resilienceKey+"."+key, value)
	}
	return nil
}

// presetValues flattens a preset into viper keys. The name is left out so
// it can default to the service name.
func presetValues(c resilience.Config) map[string]any {
	return map[string]any{
		"rate_limiter.enabled":             c.RateLimiter.Enabled,
		"rate_limiter.requests_per_second": c.RateLimiter.RequestsPerSecond,
		"rate_limiter.burst_size":          c.RateLimiter.BurstSize,

		"retry.enabled":                c.Retry.Enabled,
		"retry.max_retries":            c.Retry.MaxRetries,
		"retry.base_delay":             c.Retry.BaseDelay,
		"retry.max_delay":              c.Retry.MaxDelay,
		"retry.exponential_base":       c.Retry.ExponentialBase,
		"retry.jitter":                 c.Retry.Jitter,
		"retry.retryable_status_codes": c.Retry.RetryableStatusCodes,

		"circuit_breaker.enabled":           c.CircuitBreaker.Enabled,
		"circuit_breaker.failure_threshold": c.CircuitBreaker.FailureThreshold,
		"circuit_breaker.success_threshold": c.CircuitBreaker.SuccessThreshold,
		"circuit_breaker.timeout":           c.CircuitBreaker.Timeout,

		"bulkhead.enabled":        c.Bulkhead.Enabled,
		"bulkhead.max_concurrent": c.Bulkhead.MaxConcurrent,
		"bulkhead.max_wait":       c.Bulkhead.MaxWait,

		"collect_metrics":     c.CollectMetrics,
		"metrics_window_size": c.MetricsWindowSize,
		"acquire_timeout":     c.AcquireTimeout,
	}
}

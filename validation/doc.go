// Package validation checks configuration and input values.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their mapstructure or json key, so errors point at the config key a user
// has to fix:
//
//	type RetryConfig struct {
//	    MaxRetries int     `mapstructure:"max_retries" validate:"gte=0"`
//	    Jitter     float64 `mapstructure:"jitter" validate:"gte=0,lte=1"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects errors for checks that tags can't express:
//
//	v := validation.New()
//	v.Required("name", cfg.Name).OneOf("environment", cfg.Environment, envs).
//	    Addr("health.addr", cfg.Health.Addr)
//	err := v.Err()
package validation

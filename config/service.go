package config

import (
	"fmt"

	"github.com/kbukum/callguard/logger"
	"github.com/kbukum/callguard/observability"
	"github.com/kbukum/callguard/validation"
)

var validEnvironments = []string{"development", "staging", "production"}

// HealthConfig configures the health HTTP server.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr" json:"addr"`
}

// ServiceConfig contains the configuration every callguard binary needs.
// Binaries extend it by embedding it in their own config structs.
//
// Example:
//
//	type ProbeConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Target string `yaml:"target" mapstructure:"target"`
//	}
type ServiceConfig struct {
	Name        string               `yaml:"name" mapstructure:"name"`
	Environment string               `yaml:"environment" mapstructure:"environment"`
	Version     string               `yaml:"version" mapstructure:"version"`
	Debug       bool                 `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config        `yaml:"logging" mapstructure:"logging"`
	Resilience  ResilienceConfig     `yaml:"resilience" mapstructure:"resilience"`
	Telemetry   observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Health      HealthConfig         `yaml:"health" mapstructure:"health"`
}

// LoadServiceConfig loads cfg with the resilience preset applied as
// defaults, then fills remaining defaults and validates the result.
func LoadServiceConfig(serviceName string, cfg Service, opts ...LoaderOption) error {
	opts = append(opts, WithDefaults(ResiliencePresetDefaults))
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// Service is implemented by config structs that embed ServiceConfig.
type Service interface {
	GetServiceConfig() *ServiceConfig
	ApplyDefaults()
	Validate() error
}

// GetServiceConfig returns the base ServiceConfig.
// When embedded in a larger config struct, this method is promoted
// so the embedding struct automatically satisfies the Service interface.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
// Override this in embedding structs and call c.ServiceConfig.ApplyDefaults() first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()

	if c.Resilience.Name == "" {
		c.Resilience.Name = c.Name
	}
	c.Resilience.ApplyDefaults()

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = c.Version
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()

	if c.Health.Addr == "" {
		c.Health.Addr = ":8090"
	}
}

// Validate validates the base configuration fields.
// Override this in embedding structs and call c.ServiceConfig.Validate() first.
func (c *ServiceConfig) Validate() error {
	err := validation.New().
		Required("name", c.Name).
		Required("environment", c.Environment).
		OneOf("environment", c.Environment, validEnvironments).
		Addr("health.addr", c.Health.Addr).
		Err()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Resilience.Validate(); err != nil {
		return fmt.Errorf("config.%w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("config.%w", err)
	}
	if c.Health.Enabled && c.Health.Addr == "" {
		return fmt.Errorf("config.health.addr is required when health is enabled")
	}
	return nil
}

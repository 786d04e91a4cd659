package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/callguard/config"
	"github.com/kbukum/callguard/validation"
)

const serviceName = "callguard-probe"

// ProbeConfig is the probe binary's configuration.
type ProbeConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Probe                ProbeSettings `yaml:"probe" mapstructure:"probe"`
}

// ProbeSettings describes the periodic call.
type ProbeSettings struct {
	Target   string        `yaml:"target" mapstructure:"target" validate:"required,url"`
	Method   string        `yaml:"method" mapstructure:"method" validate:"oneof=GET HEAD"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// UnhealthyAfter is the number of consecutive failed probes that marks
	// the probe component unhealthy.
	UnhealthyAfter int `yaml:"unhealthy_after" mapstructure:"unhealthy_after" validate:"gte=1"`
}

// ApplyDefaults fills the service and probe defaults.
func (c *ProbeConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()

	if c.Probe.Method == "" {
		c.Probe.Method = http.MethodGet
	}
	if c.Probe.Interval <= 0 {
		c.Probe.Interval = 10 * time.Second
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = 5 * time.Second
	}
	if c.Probe.UnhealthyAfter <= 0 {
		c.Probe.UnhealthyAfter = 3
	}
}

// Validate checks the service config, then the probe section.
func (c *ProbeConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Probe); err != nil {
		return fmt.Errorf("config.probe: %w", err)
	}
	return nil
}

package config

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/kbukum/scribegate/logger"
)

// Environments a deployment may declare.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig is the part of the config that names the process. The
// gateway config embeds it with `mapstructure:",squash"`, so its keys sit
// at the top level of config.yml.
type ServiceConfig struct {
	Name        string        `mapstructure:"name"`
	Environment string        `mapstructure:"environment"`
	Version     string        `mapstructure:"version"`
	Debug       bool          `mapstructure:"debug"`
	Logging     logger.Config `mapstructure:"logging"`
}

// GetServiceConfig is promoted to the embedding config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults picks development when no environment is set, and turns
// debug on there.
func (c *ServiceConfig) ApplyDefaults() {
	c.Environment = cmp.Or(c.Environment, "development")
	c.Debug = c.Debug || c.Environment == "development"
	c.Logging.ApplyDefaults()
}

func (c *ServiceConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !slices.Contains(Environments, c.Environment) {
		errs = append(errs, fmt.Errorf("environment must be one of %v, got %q", Environments, c.Environment))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

package observability

import (
	"fmt"
	"time"
)

// Config configures trace and metric export.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector host:port.
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
	// SampleRate is the fraction of root traces sampled, 0 to 1.
	SampleRate float64 `mapstructure:"sample_rate"`
	// MetricsInterval is the metric export period.
	MetricsInterval string `mapstructure:"metrics_interval"`
	Environment     string `mapstructure:"environment"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricsInterval == "" {
		c.MetricsInterval = "15s"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability: sample_rate must be within [0,1] (got: %v)", c.SampleRate)
	}
	if _, err := time.ParseDuration(c.MetricsInterval); err != nil {
		return fmt.Errorf("observability: invalid metrics_interval %q: %w", c.MetricsInterval, err)
	}
	return nil
}

// GetMetricsInterval returns the parsed export interval.
func (c *Config) GetMetricsInterval() time.Duration {
	d, err := time.ParseDuration(c.MetricsInterval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

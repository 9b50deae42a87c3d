package ratelimit

import (
	"fmt"
	"time"
)

// Config configures request rate limiting.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// Limit is the number of requests allowed per window and key.
	Limit int `mapstructure:"limit"`
	// Window is the sliding window length (e.g. "1m").
	Window string `mapstructure:"window"`
}

// ApplyDefaults sets 60 requests per minute.
func (c *Config) ApplyDefaults() {
	if c.Limit <= 0 {
		c.Limit = 60
	}
	if c.Window == "" {
		c.Window = "1m"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Window)
	if err != nil {
		return fmt.Errorf("ratelimit: invalid window %q: %w", c.Window, err)
	}
	if d < time.Millisecond {
		return fmt.Errorf("ratelimit: window must be at least 1ms (got: %s)", c.Window)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("ratelimit: limit must be > 0 (got: %d)", c.Limit)
	}
	return nil
}

// WindowDuration returns the parsed window, or one minute if unparseable.
func (c *Config) WindowDuration() time.Duration {
	d, err := time.ParseDuration(c.Window)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

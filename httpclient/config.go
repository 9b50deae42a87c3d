package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/scribegate/resilience"
	"github.com/kbukum/scribegate/security"
)

const defaultTimeout = 30 * time.Second

// Config configures the HTTP client.
type Config struct {
	// BaseURL is prepended to every request path.
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds a single attempt, including reading the body. Defaults to 30s.
	Timeout string `mapstructure:"timeout"`

	// TLS configures the transport. Nil uses the system defaults.
	TLS *security.ClientTLS `mapstructure:"tls"`

	// Headers are applied to every request.
	Headers map[string]string `mapstructure:"headers"`

	// Retry controls retries of transient failures. MaxAttempts 1 disables them.
	Retry resilience.Policy `mapstructure:"retry"`

	// Auth is applied to every request unless the request overrides it.
	Auth *AuthConfig `mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == "" {
		c.Timeout = defaultTimeout.String()
	}
	c.Retry.ApplyDefaults()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("httpclient: invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return c.TLS.Validate()
}

// GetTimeout returns the parsed per-attempt timeout.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

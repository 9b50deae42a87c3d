package server

import (
	"fmt"
	"time"

	"github.com/kbukum/scribegate/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string                `mapstructure:"host"`
	Port         int                   `mapstructure:"port"`
	ReadTimeout  int                   `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int                   `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int                   `mapstructure:"idle_timeout"`  // seconds
	MaxBodySize  string                `mapstructure:"max_body_size"` // e.g. "100MB"
	CORS         middleware.CORSConfig `mapstructure:"cors"`
	// TrustedProxies lists proxy CIDRs whose forwarding headers are
	// trusted for the client IP. Empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "100MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if len(c.CORS.ExposedHeaders) == 0 {
		c.CORS.ExposedHeaders = []string{middleware.HeaderRequestID, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 10 * time.Minute
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if middleware.ParseSize(c.MaxBodySize, -1) <= 0 {
		return fmt.Errorf("server.max_body_size is not a valid size (got: %q)", c.MaxBodySize)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

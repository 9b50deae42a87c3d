package redis

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/scribegate/security"
)

// Config is the redis section. When Enabled is false the gateway keeps its
// caches and rate limits in process memory.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyPrefix namespaces every key the gateway writes.
	KeyPrefix string              `mapstructure:"key_prefix"`
	TLS       *security.ClientTLS `mapstructure:"tls"`

	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (c *Config) ApplyDefaults() {
	c.Addr = orDefault(c.Addr, "localhost:6379")
	c.KeyPrefix = orDefault(c.KeyPrefix, "scribegate")
	c.PoolSize = orDefault(c.PoolSize, 10)
	c.MinIdleConns = orDefault(c.MinIdleConns, 2)
	c.MaxRetries = orDefault(c.MaxRetries, 3)
	c.DialTimeout = orDefault(c.DialTimeout, 5*time.Second)
	c.ReadTimeout = orDefault(c.ReadTimeout, 3*time.Second)
	c.WriteTimeout = orDefault(c.WriteTimeout, 3*time.Second)
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// Validate reports every problem of an enabled section at once.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("addr %q: %w", c.Addr, err))
	}
	if c.DB < 0 {
		errs = append(errs, errors.New("db must not be negative"))
	}
	if c.PoolSize <= 0 {
		errs = append(errs, errors.New("pool_size must be > 0"))
	}
	if c.MinIdleConns > c.PoolSize {
		errs = append(errs, fmt.Errorf("min_idle_conns (%d) exceeds pool_size (%d)", c.MinIdleConns, c.PoolSize))
	}
	for name, d := range map[string]time.Duration{
		"dial_timeout": c.DialTimeout, "read_timeout": c.ReadTimeout, "write_timeout": c.WriteTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if err := c.TLS.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Key joins the prefix and the non-empty parts: Key("job", id) is
// "scribegate:job:<id>".
func (c *Config) Key(parts ...string) string {
	keep := make([]string, 0, len(parts)+1)
	for _, p := range append([]string{c.KeyPrefix}, parts...) {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, ":")
}

// options translates the section for go-redis. The server name defaults
// to the host of Addr.
func (c *Config) options() (*goredis.Options, error) {
	opts := &goredis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	if !c.TLS.Configured() {
		return opts, nil
	}
	tc, err := c.TLS.Build()
	if err != nil {
		return nil, err
	}
	if tc.ServerName == "" {
		tc.ServerName, _, _ = net.SplitHostPort(c.Addr)
	}
	opts.TLSConfig = tc
	return opts, nil
}

package database

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config describes the sqlite database holding jobs, users and API keys.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	// DSN is a file path, a file: URI or ":memory:".
	DSN string `mapstructure:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	// WAL switches file databases to write-ahead logging so status reads
	// do not block result writes.
	WAL bool `mapstructure:"wal"`

	// MaxRetries bounds connection attempts at startup.
	MaxRetries int  `mapstructure:"max_retries"`
	Migrate    bool `mapstructure:"migrate"`

	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	// LogLevel is silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

func (c *Config) ApplyDefaults() {
	c.DSN = cmp.Or(c.DSN, "scribegate.db")
	c.MaxOpenConns = cmp.Or(max(c.MaxOpenConns, 0), 10)
	c.MaxIdleConns = cmp.Or(max(c.MaxIdleConns, 0), 5)
	c.ConnMaxLifetime = cmp.Or(c.ConnMaxLifetime, time.Hour)
	c.ConnMaxIdleTime = cmp.Or(c.ConnMaxIdleTime, 5*time.Minute)
	c.BusyTimeout = cmp.Or(c.BusyTimeout, 5*time.Second)
	c.MaxRetries = cmp.Or(max(c.MaxRetries, 0), 5)
	c.SlowQueryThreshold = cmp.Or(c.SlowQueryThreshold, 200*time.Millisecond)
	c.LogLevel = cmp.Or(c.LogLevel, "warn")
	// An in-memory sqlite database exists once per connection.
	if c.InMemory() {
		c.MaxOpenConns, c.MaxIdleConns = 1, 1
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("dsn is required"))
	}
	if c.MaxOpenConns <= 0 {
		errs = append(errs, errors.New("max_open_conns must be positive"))
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errs = append(errs, fmt.Errorf("max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, errors.New("max_retries must be positive"))
	}
	for name, d := range map[string]time.Duration{
		"conn_max_lifetime":    c.ConnMaxLifetime,
		"conn_max_idle_time":   c.ConnMaxIdleTime,
		"busy_timeout":         c.BusyTimeout,
		"slow_query_threshold": c.SlowQueryThreshold,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if _, ok := gormLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// InMemory reports whether the DSN names an in-memory database.
func (c *Config) InMemory() bool {
	return c.DSN == ":memory:" || strings.Contains(c.DSN, "mode=memory")
}

// driverDSN adds the busy timeout and journal mode as go-sqlite3
// parameters. Parameters already in the DSN win.
func (c *Config) driverDSN() string {
	path, query, _ := strings.Cut(c.DSN, "?")
	params, err := url.ParseQuery(query)
	if err != nil {
		return c.DSN
	}
	if c.BusyTimeout > 0 && !params.Has("_busy_timeout") {
		params.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	}
	if c.WAL && !c.InMemory() && !params.Has("_journal_mode") {
		params.Set("_journal_mode", "WAL")
	}
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

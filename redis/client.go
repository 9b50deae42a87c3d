package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/scribegate/logger"
)

// Client is the gateway's shared Redis connection pool.
type Client struct {
	rdb    *goredis.Client
	cfg    Config
	log    *logger.Logger
	closed atomic.Bool
}

// New builds a pool from cfg without dialing. Ping verifies the server.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.New("redis: disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if log == nil {
		log = logger.WithComponent("redis")
	}
	log.Info("Redis client created", map[string]interface{}{
		"addr": cfg.Addr, "db": cfg.DB, "pool_size": cfg.PoolSize, "tls": opts.TLSConfig != nil,
	})
	return &Client{rdb: goredis.NewClient(opts), cfg: cfg, log: log}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", c.cfg.Addr, err)
	}
	return nil
}

// Key builds a key under the configured prefix.
func (c *Client) Key(parts ...string) string {
	return c.cfg.Key(parts...)
}

// IsAvailable reports whether the pool is open and the server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return !c.closed.Load() && c.rdb.Ping(ctx).Err() == nil
}

// Close releases the pool. It is safe on a nil or closed Client.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.log.Info("Closing Redis connection")
	return c.rdb.Close()
}

// Unwrap exposes go-redis for pipelines and commands not wrapped here.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}

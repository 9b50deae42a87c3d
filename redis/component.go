package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/logger"
)

// Component runs the shared Client under the component registry.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client is nil until Start succeeds.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start fails when the server does not answer a ping.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return err
	}
	c.client = client
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health is degraded, not unhealthy, when Redis stops answering: caches
// and rate limits fall back to process memory.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.client == nil:
		h.Status, h.Message = component.StatusUnhealthy, "redis not started"
	case !c.client.IsAvailable(ctx):
		h.Status, h.Message = component.StatusDegraded, "redis unreachable at "+c.cfg.Addr
	default:
		s := c.client.rdb.PoolStats()
		h.Message = fmt.Sprintf("conns=%d idle=%d timeouts=%d", s.TotalConns, s.IdleConns, s.Timeouts)
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s db=%d pool=%d prefix=%s", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize, c.cfg.KeyPrefix)
	if c.cfg.TLS.Configured() {
		details += " tls"
	}
	return component.Description{Name: "Redis", Type: "redis", Details: details}
}

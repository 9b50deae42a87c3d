package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/logger"
)

// Component opens the configured backend under the component registry. A
// disabled component stays healthy and holds no Storage.
type Component struct {
	cfg     Config
	log     *logger.Logger
	storage Storage
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Storage is nil when disabled or not started.
func (c *Component) Storage() Storage { return c.storage }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Audio archiving disabled")
		return nil
	}
	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", c.cfg.location(), err)
	}
	c.storage = s
	c.log.Info("Audio archive ready", map[string]interface{}{"location": c.cfg.location()})
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.storage = nil
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.storage == nil:
		h.Status, h.Message = component.StatusUnhealthy, "storage not started"
	default:
		if err := c.storage.Ping(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("storage unreachable: %v", err)
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("provider=%s %s", c.cfg.Provider, c.cfg.location())
	if !c.cfg.Enabled {
		details += " (disabled)"
	}
	return component.Description{Name: "Storage", Type: "storage", Details: details}
}

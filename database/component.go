package database

import (
	"context"
	"fmt"

	"github.com/kbukum/scribegate/component"
	"github.com/kbukum/scribegate/database/migration"
	"github.com/kbukum/scribegate/logger"
)

// Component opens the database on Start, migrating it when configured.
type Component struct {
	cfg Config
	log *logger.Logger
	db  *DB
}

var _ component.Component = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// DB is nil until Start succeeds.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	if c.db != nil {
		return nil
	}
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	if c.cfg.Migrate {
		if err := migration.Up(db.GormDB, c.log); err != nil {
			_ = db.Close()
			return fmt.Errorf("database: migrate: %w", err)
		}
	}
	c.db = db
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the pool. Pool saturation degrades it since job writes
// then queue behind status reads.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.db == nil:
		h.Status, h.Message = component.StatusUnhealthy, "database not started"
	default:
		if err := c.db.PingContext(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, fmt.Sprintf("database unreachable: %v", err)
			break
		}
		pool, err := c.db.GormDB.DB()
		if err != nil {
			break
		}
		st := pool.Stats()
		h.Message = fmt.Sprintf("open=%d in_use=%d waits=%d", st.OpenConnections, st.InUse, st.WaitCount)
		if st.MaxOpenConnections > 0 && st.InUse >= st.MaxOpenConnections && st.WaitCount > 0 {
			h.Status = component.StatusDegraded
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("sqlite %s pool=%d/%d", c.cfg.DSN, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.WAL && !c.cfg.InMemory() {
		details += " wal"
	}
	if c.cfg.Migrate {
		details += " migrate"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}

package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/scribegate/logger"
	"github.com/kbukum/scribegate/resilience"
)

// DB is the gateway's sqlite handle. Repositories share one DB.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open connects to cfg.DSN, retrying up to cfg.MaxRetries times with
// exponential backoff while ctx allows.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	gcfg := &gorm.Config{
		Logger:         newGormLogger(log, cfg.SlowQueryThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.RetryIf = IsRetryableError
	retry.InitialBackoff = 500 * time.Millisecond
	retry.MaxBackoff = 5 * time.Second
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("Database not reachable, retrying", map[string]interface{}{
			"attempt": attempt, "error": err.Error(), "backoff": wait.String(),
		})
	}

	gdb, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		return connect(ctx, sqlite.Open(cfg.driverDSN()), gcfg, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect %s: %w", cfg.DSN, err)
	}
	log.Info("Database connected", map[string]interface{}{"dsn": cfg.DSN, "in_memory": cfg.InMemory()})
	return &DB{GormDB: gdb, log: log}, nil
}

// connect opens and pings one pool, closing it again when the ping fails.
func connect(ctx context.Context, d gorm.Dialector, gcfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	gdb, err := gorm.Open(d, gcfg)
	if err != nil {
		return nil, err
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	if !cfg.InMemory() {
		// Recycling the only connection would drop an in-memory database.
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return gdb, nil
}

// Close releases the pool. Later calls return the first result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		pool, err := d.GormDB.DB()
		if err != nil {
			d.closeErr = err
			return
		}
		d.log.Info("Closing database")
		d.closeErr = pool.Close()
	})
	return d.closeErr
}

func (d *DB) PingContext(ctx context.Context) error {
	pool, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// WithContext returns a session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// WithTransaction runs fn in a transaction. It commits when fn returns nil
// and rolls back on an error or a panic, which is re-raised.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.GormDB.WithContext(ctx).Transaction(fn)
}

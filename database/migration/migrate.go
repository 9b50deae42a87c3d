// Package migration applies the embedded scribegate schema migrations with
// golang-migrate.
//
// Migration files live in migrations/ and follow the pattern
// VERSION_name.up.sql and VERSION_name.down.sql. The sqlite3 driver runs
// each file inside its own transaction.
//
//	if err := migration.Up(db.GormDB, log); err != nil {
//	    return err
//	}
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/kbukum/scribegate/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsPath = "migrations"

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (database.Driver, error)

// SQLite is the DriverFunc for the sqlite3 driver.
func SQLite(db *sql.DB) (database.Driver, error) {
	return sqlite3.WithInstance(db, &sqlite3.Config{})
}

// Up runs all pending migrations.
// Returns nil if there are no new migrations to apply.
func Up(gormDB *gorm.DB, log *logger.Logger) error {
	m, err := newMigrator(gormDB, migrationsFS, SQLite)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	logVersion(m, log)
	return nil
}

// Down rolls back all migrations.
// Returns nil if there are no migrations to roll back.
func Down(gormDB *gorm.DB, log *logger.Logger) error {
	m, err := newMigrator(gormDB, migrationsFS, SQLite)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	logVersion(m, log)
	return nil
}

// Steps runs n migrations (positive = up, negative = down).
func Steps(gormDB *gorm.DB, n int, log *logger.Logger) error {
	m, err := newMigrator(gormDB, migrationsFS, SQLite)
	if err != nil {
		return err
	}
	if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	logVersion(m, log)
	return nil
}

// Version returns the current migration version and dirty flag.
// A database without migrations reports version 0.
func Version(gormDB *gorm.DB) (version uint, dirty bool, err error) {
	m, err := newMigrator(gormDB, migrationsFS, SQLite)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func logVersion(m *migrate.Migrate, log *logger.Logger) {
	if log == nil {
		return
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Warn("Could not read migration version", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Info("Database schema migrated", map[string]interface{}{
		"version": version,
		"dirty":   dirty,
	})
}

// newMigrator creates a golang-migrate instance backed by the embedded FS.
// Callers must NOT call m.Close(); it would close the shared sql.DB.
func newMigrator(gormDB *gorm.DB, source fs.FS, driverFunc DriverFunc) (*migrate.Migrate, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	src, err := iofs.New(source, migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

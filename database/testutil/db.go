// Package testutil provides migrated in-memory databases and fixture helpers
// for tests of database-backed packages.
package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/scribegate/database"
	"github.com/kbukum/scribegate/database/migration"
	"github.com/kbukum/scribegate/logger"
)

// NewDB opens a private in-memory sqlite database with the scribegate
// schema applied. It is closed when the test ends.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	cfg := database.Config{Enabled: true, DSN: ":memory:", LogLevel: "silent", MaxRetries: 1}
	db, err := database.Open(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migration.Up(db.GormDB, logger.Nop()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

package testutil

import (
	"fmt"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is one fixture record keyed by column name.
type Row = map[string]interface{}

// Insert writes rows into table in a single batch.
func Insert(db *gorm.DB, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := db.Table(table).CreateInBatches(rows, len(rows)).Error; err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(rows), table, err)
	}
	return nil
}

// Seed is Insert for tests.
func Seed(t testing.TB, db *gorm.DB, table string, rows ...Row) {
	t.Helper()
	if err := Insert(db, table, rows); err != nil {
		t.Fatal(err)
	}
}

func Truncate(db *gorm.DB, table string) error {
	return db.Exec("DELETE FROM ?", clause.Table{Name: table}).Error
}

// Tables lists the schema tables, schema_migrations included.
func Tables(db *gorm.DB) ([]string, error) {
	var names []string
	err := db.Table("sqlite_master").Where("type = ? AND name NOT LIKE ?", "table", "sqlite_%").
		Order("name").Pluck("name", &names).Error
	return names, err
}

func Count(db *gorm.DB, table string) (int64, error) {
	var n int64
	err := db.Table(table).Count(&n).Error
	return n, err
}

// AssertCount fails the test unless table holds exactly want rows.
func AssertCount(t testing.TB, db *gorm.DB, table string, want int64) {
	t.Helper()
	n, err := Count(db, table)
	switch {
	case err != nil:
		t.Fatalf("count %s: %v", table, err)
	case n != want:
		t.Errorf("%s has %d rows, want %d", table, n, want)
	}
}

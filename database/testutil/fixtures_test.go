package testutil

import (
	"slices"
	"testing"
	"time"
)

func user(id, name string) Row {
	now := time.Now()
	return Row{"id": id, "subject": "sub-" + id, "username": name, "created_at": now, "updated_at": now}
}

func TestNewDB_AppliesSchema(t *testing.T) {
	tables, err := Tables(NewDB(t).GormDB)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"api_keys", "jobs", "schema_migrations", "users"} {
		if !slices.Contains(tables, name) {
			t.Errorf("table %s missing, got %v", name, tables)
		}
	}
}

func TestNewDB_Isolated(t *testing.T) {
	a, b := NewDB(t), NewDB(t)
	Seed(t, a.GormDB, "users", user("u1", "Alice"))

	AssertCount(t, a.GormDB, "users", 1)
	AssertCount(t, b.GormDB, "users", 0)
}

func TestInsert(t *testing.T) {
	db := NewDB(t).GormDB
	if err := Insert(db, "users", []Row{user("u2", "Bob"), user("u1", "Alice")}); err != nil {
		t.Fatal(err)
	}

	var names []string
	db.Table("users").Order("username").Pluck("username", &names)
	if !slices.Equal(names, []string{"Alice", "Bob"}) {
		t.Errorf("names = %v", names)
	}

	if err := Insert(db, "users", nil); err != nil {
		t.Errorf("no rows is a no-op: %v", err)
	}
	if err := Insert(db, "missing", []Row{{"id": "x"}}); err == nil {
		t.Error("insert into a missing table should fail")
	}
	if err := Insert(db, "users", []Row{user("u1", "Dup")}); err == nil {
		t.Error("duplicate primary key should fail")
	}
}

func TestTruncateAndCount(t *testing.T) {
	db := NewDB(t).GormDB
	Seed(t, db, "users", user("u1", "a"), user("u2", "b"))

	if err := Truncate(db, "users"); err != nil {
		t.Fatal(err)
	}
	AssertCount(t, db, "users", 0)

	if _, err := Count(db, "missing"); err == nil {
		t.Error("count on a missing table should fail")
	}
}

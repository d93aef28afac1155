package testutil

import (
	"testing"

	"gorm.io/gorm"
)

type user struct {
	ID    uint `gorm:"primarykey"`
	Name  string
	Email string
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewProvider(t, &user{}).DB("").GormDB
}

func TestNewProvider(t *testing.T) {
	p := NewProvider(t, &user{})
	if p.DB("") == nil {
		t.Fatal("provider should be started")
	}
	if !TableExists(p.DB("").GormDB, "users") {
		t.Error("models should be auto-migrated")
	}
}

func TestNewProvider_NoModels(t *testing.T) {
	db := NewProvider(t).DB("").GormDB
	if TableExists(db, "users") {
		t.Error("no tables expected without models")
	}
}

func TestLoadFixture(t *testing.T) {
	db := newDB(t)

	err := LoadFixture(db, "users", []map[string]interface{}{
		{"name": "Alice", "email": "alice@example.com"},
		{"name": "Bob", "email": "bob@example.com"},
	})
	if err != nil {
		t.Fatalf("LoadFixture() failed: %v", err)
	}

	var names []string
	db.Raw("SELECT name FROM users ORDER BY name").Scan(&names)
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Errorf("names = %v, want [Alice Bob]", names)
	}
}

func TestLoadFixture_EmptyData(t *testing.T) {
	db := newDB(t)

	if err := LoadFixture(db, "users", nil); err != nil {
		t.Errorf("LoadFixture() with empty data failed: %v", err)
	}
	AssertTableEmpty(t, db, "users")
}

func TestLoadFixture_InvalidTable(t *testing.T) {
	db := newDB(t)

	err := LoadFixture(db, "nonexistent", []map[string]interface{}{
		{"name": "Alice"},
	})
	if err == nil {
		t.Error("LoadFixture() with invalid table should fail")
	}
}

func TestTruncateAllTables(t *testing.T) {
	db := newDB(t)
	db.Exec("CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT)")
	MustLoadFixture(t, db, "users", []map[string]interface{}{{"name": "Alice"}})
	MustLoadFixture(t, db, "posts", []map[string]interface{}{{"title": "Hello"}})

	if err := TruncateAllTables(db); err != nil {
		t.Fatalf("TruncateAllTables() failed: %v", err)
	}

	AssertTableEmpty(t, db, "users")
	AssertTableEmpty(t, db, "posts")
	if !TableExists(db, "posts") {
		t.Error("schema should be preserved")
	}
}

func TestCountRows(t *testing.T) {
	db := newDB(t)
	MustLoadFixture(t, db, "users", []map[string]interface{}{
		{"name": "Alice"},
		{"name": "Bob"},
		{"name": "Carol"},
	})

	count, err := CountRows(db, "users")
	if err != nil {
		t.Fatalf("CountRows() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("CountRows() = %d, want 3", count)
	}
	AssertRowCount(t, db, "users", 3)
}

func TestCountRows_InvalidTable(t *testing.T) {
	db := newDB(t)
	if _, err := CountRows(db, "nonexistent"); err == nil {
		t.Error("CountRows() on invalid table should fail")
	}
}

func TestAssertRowCount_Mismatch(t *testing.T) {
	db := newDB(t)
	MustLoadFixture(t, db, "users", []map[string]interface{}{{"name": "Alice"}})

	rec := &recordingTB{TB: t}
	AssertRowCount(rec, db, "users", 2)
	if !rec.failed {
		t.Error("AssertRowCount() should fail on mismatch")
	}
}

type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...any) { r.failed = true }

func TestRowHelpers_InsideTransaction(t *testing.T) {
	p := NewProvider(t, &user{})
	err := p.DB("").WithTransaction(t.Context(), func(tx *gorm.DB) error {
		MustLoadFixture(t, tx, "users", []map[string]interface{}{{"name": "Alice"}})
		AssertRowCount(t, tx, "users", 1)
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction() failed: %v", err)
	}
	AssertRowCount(t, p.DB("").GormDB, "users", 1)
}

package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bookkeeping tables that snapshots and resets leave alone.
var bookkeepingTables = map[string]bool{
	"schema_migrations":  true,
	"fixture_migrations": true,
}

// Snapshot holds the rows of a set of tables, keyed by table name.
type Snapshot map[string][]map[string]interface{}

// Tables returns the user tables of db, sorted. System and migration
// bookkeeping tables are skipped.
func Tables(db *gorm.DB) ([]string, error) {
	all, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make([]string, 0, len(all))
	for _, t := range all {
		if strings.HasPrefix(t, "sqlite_") || bookkeepingTables[t] {
			continue
		}
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables, nil
}

// Capture reads every row of tables. With no tables, all user tables are
// captured.
func Capture(ctx context.Context, db *gorm.DB, tables ...string) (Snapshot, error) {
	db = db.WithContext(ctx)
	if len(tables) == 0 {
		var err error
		if tables, err = Tables(db); err != nil {
			return nil, err
		}
	}

	snap := make(Snapshot, len(tables))
	for _, table := range tables {
		var rows []map[string]interface{}
		if err := db.Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to snapshot table %s: %w", table, err)
		}
		snap[table] = rows
	}
	return snap, nil
}

// Truncate deletes every row of tables.
func Truncate(ctx context.Context, db *gorm.DB, tables ...string) error {
	db = db.WithContext(ctx)
	for _, table := range tables {
		if err := db.Exec("DELETE FROM ?", clause.Table{Name: table}).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// Restore replaces the content of every captured table with the captured rows.
func (s Snapshot) Restore(ctx context.Context, db *gorm.DB) error {
	if err := Truncate(ctx, db, s.Tables()...); err != nil {
		return err
	}
	db = db.WithContext(ctx)
	for _, table := range s.Tables() {
		rows := s[table]
		if len(rows) == 0 {
			continue
		}
		if err := db.Table(table).Create(rows).Error; err != nil {
			return fmt.Errorf("failed to restore rows of table %s: %w", table, err)
		}
	}
	return nil
}

// Tables returns the captured table names, sorted.
func (s Snapshot) Tables() []string {
	tables := make([]string, 0, len(s))
	for t := range s {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// Rows returns the number of captured rows across all tables.
func (s Snapshot) Rows() int {
	n := 0
	for _, rows := range s {
		n += len(rows)
	}
	return n
}

package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database/migration"
	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/state"
	"github.com/kbukum/fixturekit/txn"
)

// SnapshotStateName is the state_generator value selecting SnapshotState.
const SnapshotStateName = "snapshot"

func init() {
	state.Register(SnapshotStateName, func() state.Generator { return NewSnapshotState() })
}

// SnapshotState is a state generator for databases. CreateState applies the
// migrations in migrations_dir, if set, and captures the tables; RestoreState
// puts the captured rows back after every cleanup.
//
// Options:
//
//	migrations_dir: directory of golang-migrate SQL files
//	tables:         list (or comma-separated string) of tables to capture; all by default
type SnapshotState struct {
	migrationsDir string
	tables        []string
	driver        migration.DriverFunc
	log           *logger.Logger

	snapshot Snapshot
}

var _ state.Generator = (*SnapshotState)(nil)

// NewSnapshotState creates an unconfigured SnapshotState for SQLite.
func NewSnapshotState() *SnapshotState {
	return &SnapshotState{
		driver: migration.SQLite,
		log:    logger.Get("database").WithComponent("snapshot"),
	}
}

// Configure implements state.Generator.
func (s *SnapshotState) Configure(options map[string]any) error {
	for key, value := range options {
		switch key {
		case "migrations_dir":
			dir, ok := value.(string)
			if !ok {
				return fmt.Errorf("migrations_dir must be a string, got %T", value)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("migrations_dir %q is not a directory", dir)
			}
			s.migrationsDir = dir
		case "tables":
			tables, err := stringList(value)
			if err != nil {
				return fmt.Errorf("tables: %w", err)
			}
			s.tables = tables
		default:
			return fmt.Errorf("unknown option %q", key)
		}
	}
	return nil
}

// CreateState implements state.Generator.
func (s *SnapshotState) CreateState(ctx context.Context, res txn.Resource) error {
	db, err := underlying(res)
	if err != nil {
		return err
	}

	if s.migrationsDir != "" {
		if err := migration.Up(db.GormDB, os.DirFS(s.migrationsDir), ".", s.driver); err != nil {
			return err
		}
	}

	return db.WithReadOnlyTransaction(ctx, func(tx *gorm.DB) error {
		snap, err := Capture(ctx, tx, s.tables...)
		if err != nil {
			return err
		}
		s.snapshot = snap
		s.log.WithContext(ctx).Debug("Baseline captured", map[string]interface{}{
			logger.FieldResource: db.Name(),
			"tables":             len(snap),
			"rows":               snap.Rows(),
		})
		return nil
	})
}

// RestoreState implements state.Generator.
func (s *SnapshotState) RestoreState(ctx context.Context, res txn.Resource) error {
	if s.snapshot == nil {
		return nil
	}
	db, err := underlying(res)
	if err != nil {
		return err
	}
	return db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return s.snapshot.Restore(ctx, tx)
	})
}

// Baseline returns the captured snapshot.
func (s *SnapshotState) Baseline() Snapshot { return s.snapshot }

func underlying(res txn.Resource) (*DB, error) {
	r, ok := res.(*Resource)
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("snapshot state needs a database resource, got %T", res))
	}
	if r.Active() {
		return nil, errors.Configuration(fmt.Sprintf("resource %s has an open transaction", r.Name()))
	}
	return r.Underlying(), nil
}

func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", value)
	}
}

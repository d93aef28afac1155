package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/logger"
)

// Migration describes a single GORM-based schema migration.
type Migration struct {
	ID          string
	Description string
	Up          func(*gorm.DB) error
}

// Runner applies GORM-based migrations tracked in a fixture_migrations table.
type Runner struct {
	db         *gorm.DB
	log        *logger.Logger
	migrations []Migration
}

// NewRunner creates a runner bound to the given database and logger.
func NewRunner(db *gorm.DB, log *logger.Logger) *Runner {
	return &Runner{db: db, log: log}
}

// Add registers migrations to be applied, in order.
func (r *Runner) Add(migrations ...Migration) {
	r.migrations = append(r.migrations, migrations...)
}

// Run applies all pending migrations in order, each in its own transaction.
func (r *Runner) Run() error {
	if err := r.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range r.migrations {
		applied, err := r.isApplied(migration.ID)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			continue
		}

		r.log.Debug("Applying migration", map[string]interface{}{
			"id":          migration.ID,
			"description": migration.Description,
		})

		if err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Exec("INSERT INTO fixture_migrations (id) VALUES (?)", migration.ID).Error
		}); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.ID, err)
		}
	}

	return nil
}

// Applied returns the IDs of applied migrations, sorted.
func (r *Runner) Applied() ([]string, error) {
	var ids []string
	err := r.db.Table("fixture_migrations").Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *Runner) createMigrationsTable() error {
	return r.db.Exec(`
		CREATE TABLE IF NOT EXISTS fixture_migrations (
			id VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

func (r *Runner) isApplied(id string) (bool, error) {
	var count int64
	err := r.db.Table("fixture_migrations").Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

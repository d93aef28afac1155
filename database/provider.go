package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/database/migration"
	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/testutil"
	"github.com/kbukum/fixturekit/txn"
)

// DialectorFunc builds the GORM dialector for a DSN.
type DialectorFunc func(dsn string) gorm.Dialector

// Provider serves named databases as managed resources. It is an
// infrastructure component: Start opens every configured database, Stop
// closes them. A Provider added to a fixture environment with
// fixture.WithComponents becomes the environment's resource provider.
type Provider struct {
	cfgs       map[string]Config
	dialector  DialectorFunc
	models     []interface{}
	migrations []migration.Migration
	log        *logger.Logger

	mu      sync.RWMutex
	dbs     map[string]*DB
	started bool
}

var (
	_ component.Component    = (*Provider)(nil)
	_ testutil.TestComponent = (*Provider)(nil)
	_ txn.Provider           = (*Provider)(nil)
)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithDialector sets the driver used for every database. Defaults to SQLite.
func WithDialector(fn DialectorFunc) ProviderOption {
	return func(p *Provider) { p.dialector = fn }
}

// WithModels registers models auto-migrated on Start for databases with
// auto_migrate set.
func WithModels(models ...interface{}) ProviderOption {
	return func(p *Provider) { p.models = append(p.models, models...) }
}

// WithMigrations registers programmatic migrations applied to every
// database on Start.
func WithMigrations(migrations ...migration.Migration) ProviderOption {
	return func(p *Provider) { p.migrations = append(p.migrations, migrations...) }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ProviderOption {
	return func(p *Provider) { p.log = l }
}

// NewProvider creates a provider for the named databases. A missing
// "default" entry is added as a private in-memory SQLite database.
func NewProvider(cfgs map[string]Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		cfgs:      make(map[string]Config, len(cfgs)+1),
		dialector: func(dsn string) gorm.Dialector { return sqlite.Open(dsn) },
		dbs:       make(map[string]*DB),
	}
	for name, cfg := range cfgs {
		p.cfgs[txn.Normalize(name)] = cfg
	}
	if _, ok := p.cfgs[txn.DefaultName]; !ok {
		p.cfgs[txn.DefaultName] = Config{}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get("database")
	}
	p.log = p.log.WithComponent("database")
	return p
}

// Name returns the component name.
func (p *Provider) Name() string { return "database" }

// Names returns the configured resource names, sorted.
func (p *Provider) Names() []string {
	names := make([]string, 0, len(p.cfgs))
	for name := range p.cfgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start opens every configured database and applies schema setup.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("database provider already started")
	}

	for _, name := range p.Names() {
		cfg := p.cfgs[name]
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			p.closeAll()
			return errors.Configuration(fmt.Sprintf("database %s: %v", name, err))
		}
		db, err := Open(ctx, name, p.dialector(cfg.DSN), cfg, p.log)
		if err != nil {
			p.closeAll()
			return fmt.Errorf("database start: %w", err)
		}
		p.dbs[name] = db

		if cfg.AutoMigrate && len(p.models) > 0 {
			if err := db.AutoMigrate(p.models...); err != nil {
				p.closeAll()
				return fmt.Errorf("database %s auto-migrate: %w", name, err)
			}
		}
		if len(p.migrations) > 0 {
			runner := migration.NewRunner(db.GormDB, p.log)
			runner.Add(p.migrations...)
			if err := runner.Run(); err != nil {
				p.closeAll()
				return fmt.Errorf("database %s migrations: %w", name, err)
			}
		}
	}

	p.started = true
	p.log.Debug("Database provider started", map[string]interface{}{
		logger.FieldCount: len(p.dbs),
	})
	return nil
}

// Stop closes every database.
func (p *Provider) Stop(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	p.started = false
	return p.closeAll()
}

func (p *Provider) closeAll() error {
	var errs []string
	for name, db := range p.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	p.dbs = make(map[string]*DB)
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("close databases: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Health pings every database.
func (p *Provider) Health(ctx context.Context) component.Health {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return component.Health{
			Name:    p.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database provider not started",
		}
	}
	for _, name := range p.Names() {
		if err := p.dbs[name].PingContext(ctx); err != nil {
			return component.Health{
				Name:    p.Name(),
				Status:  component.StatusUnhealthy,
				Message: fmt.Sprintf("%s: ping failed: %v", name, err),
			}
		}
	}
	return component.Health{Name: p.Name(), Status: component.StatusHealthy}
}

// DB returns the named database, or nil if it is unknown or the provider is
// not started. An empty name means the default database.
func (p *Provider) DB(name string) *DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dbs[txn.Normalize(name)]
}

// Open implements txn.Provider. Each call returns a new Resource over the
// shared database.
func (p *Provider) Open(_ context.Context, name string) (txn.Resource, error) {
	name = txn.Normalize(name)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started {
		return nil, errors.Configuration("database provider not started")
	}
	db, ok := p.dbs[name]
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("unknown database resource %q", name)).
			WithDetail("available", p.Names())
	}
	return NewResource(db), nil
}

// Reset deletes every row of every user table in every database.
func (p *Provider) Reset(ctx context.Context) error {
	return p.each(func(name string, db *DB) error {
		tables, err := Tables(db.WithContext(ctx))
		if err != nil {
			return err
		}
		return Truncate(ctx, db.GormDB, tables...)
	})
}

// Snapshot captures every database. The result is a map[string]Snapshot
// keyed by resource name.
func (p *Provider) Snapshot(ctx context.Context) (interface{}, error) {
	snaps := make(map[string]Snapshot)
	err := p.each(func(name string, db *DB) error {
		return db.WithReadOnlyTransaction(ctx, func(tx *gorm.DB) error {
			snap, err := Capture(ctx, tx)
			if err != nil {
				return err
			}
			snaps[name] = snap
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// Restore returns every database to a snapshot taken by Snapshot.
func (p *Provider) Restore(ctx context.Context, snapshot interface{}) error {
	snaps, ok := snapshot.(map[string]Snapshot)
	if !ok {
		return fmt.Errorf("invalid snapshot type: expected map[string]Snapshot, got %T", snapshot)
	}
	return p.each(func(name string, db *DB) error {
		snap, ok := snaps[name]
		if !ok {
			return nil
		}
		return db.WithTransaction(ctx, func(tx *gorm.DB) error {
			return snap.Restore(ctx, tx)
		})
	})
}

func (p *Provider) each(fn func(name string, db *DB) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started {
		return fmt.Errorf("database provider not started")
	}
	for _, name := range p.Names() {
		if err := fn(name, p.dbs[name]); err != nil {
			return fmt.Errorf("database %s: %w", name, err)
		}
	}
	return nil
}

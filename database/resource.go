package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/txn"
)

// Resource is a managed transactional handle over one named database. It
// holds at most one open transaction; DB returns that transaction while it
// is open so fixture code and the code under test share it.
type Resource struct {
	db *DB

	mu sync.Mutex
	tx *gorm.DB
}

var _ txn.Resource = (*Resource)(nil)

// NewResource wraps db.
func NewResource(db *DB) *Resource {
	return &Resource{db: db}
}

// Name implements txn.Resource.
func (r *Resource) Name() string { return r.db.Name() }

// Underlying returns the wrapped database.
func (r *Resource) Underlying() *DB { return r.db }

// DB returns the open transaction, or a new session on the database when
// no transaction is open.
func (r *Resource) DB(ctx context.Context) *gorm.DB {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tx != nil {
		return r.tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Begin implements txn.Resource.
func (r *Resource) Begin(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tx != nil {
		return FromDatabase(fmt.Errorf("transaction already open"), "begin", r.Name())
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return FromDatabase(tx.Error, "begin", r.Name())
	}
	r.tx = tx
	return nil
}

// Commit implements txn.Resource. A failed commit leaves the transaction
// in place for Rollback.
func (r *Resource) Commit(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tx == nil {
		return FromDatabase(fmt.Errorf("no open transaction"), "commit", r.Name())
	}
	if err := r.tx.Commit().Error; err != nil {
		return FromDatabase(err, "commit", r.Name())
	}
	r.tx = nil
	return nil
}

// Rollback implements txn.Resource. Rolling back without an open
// transaction is a no-op.
func (r *Resource) Rollback(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tx == nil {
		return nil
	}
	err := r.tx.Rollback().Error
	r.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return FromDatabase(err, "rollback", r.Name())
	}
	return nil
}

// Clear implements txn.Resource. It ends the session: a transaction still
// open is rolled back and handles returned by DB must not be reused.
func (r *Resource) Clear(ctx context.Context) error {
	r.mu.Lock()
	open := r.tx != nil
	r.mu.Unlock()
	if !open {
		return nil
	}
	r.db.log.Warn("Clearing resource with an open transaction", map[string]interface{}{
		logger.FieldResource: r.Name(),
	})
	return r.Rollback(ctx)
}

// Active implements txn.Resource.
func (r *Resource) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tx != nil
}

package txn

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/observability"
)

var mutatingPrefixes = []string{"create", "update", "delete"}

// IsMutating reports whether op names a mutating operation: its name starts
// with create, update or delete, ignoring case.
func IsMutating(op string) bool {
	lower := strings.ToLower(op)
	for _, p := range mutatingPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Interceptor carries the run-level switch for transactional boundaries.
// Boundaries only open transactions while the interceptor is live, which a
// fixture run limits to the test body. Outside that window generate and
// cleanup already run inside a transaction sweep.
type Interceptor struct {
	live    atomic.Bool
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewInterceptor creates an inactive interceptor.
func NewInterceptor(log *logger.Logger, metrics *observability.Metrics) *Interceptor {
	if log == nil {
		log = logger.Get("txn")
	}
	return &Interceptor{log: log, metrics: metrics}
}

// Activate marks the run as in flight.
func (i *Interceptor) Activate() { i.live.Store(true) }

// Deactivate ends the in-flight window.
func (i *Interceptor) Deactivate() { i.live.Store(false) }

// Live reports whether boundaries currently open transactions.
func (i *Interceptor) Live() bool { return i.live.Load() }

// Bind returns a boundary that wraps calls on res.
func (i *Interceptor) Bind(res Resource) *Boundary {
	return &Boundary{interceptor: i, res: res}
}

// BoundaryAware is implemented by components that wrap their own mutating
// operations. The injector hands each one a boundary bound to its resource.
type BoundaryAware interface {
	UseBoundary(b *Boundary)
}

// Boundary wraps mutating calls on one resource in a transaction.
// A nil *Boundary runs calls unwrapped.
type Boundary struct {
	interceptor *Interceptor
	res         Resource
}

// Resource returns the resource the boundary is bound to.
func (b *Boundary) Resource() Resource {
	if b == nil {
		return nil
	}
	return b.res
}

func (b *Boundary) wraps(op string) bool {
	return b != nil && b.res != nil && b.interceptor != nil &&
		b.interceptor.Live() && IsMutating(op) && !b.res.Active()
}

// Invoke runs fn. When the interceptor is live, op is mutating and no
// transaction is open on the resource, fn runs between begin and commit,
// and an error or panic from fn rolls back instead.
func (b *Boundary) Invoke(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !b.wraps(op) {
		return fn(ctx)
	}

	name := b.res.Name()
	if err := b.res.Begin(ctx); err != nil {
		return errors.DatabaseError("begin", name, err)
	}
	b.interceptor.metrics.RecordTxn(ctx, name, observability.TxnBegin)

	defer func() {
		if r := recover(); r != nil {
			_ = b.res.Rollback(ctx)
			b.interceptor.metrics.RecordTxn(ctx, name, observability.TxnRollback)
			b.interceptor.log.Error("Transaction rolled back due to panic", map[string]interface{}{
				logger.FieldOperation: op,
				logger.FieldResource:  name,
				"panic":               fmt.Sprintf("%v", r),
			})
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		b.interceptor.metrics.RecordTxn(ctx, name, observability.TxnRollback)
		if rbErr := b.res.Rollback(ctx); rbErr != nil {
			return stderrors.Join(err, errors.DatabaseError("rollback", name, rbErr))
		}
		return err
	}

	if err := b.res.Commit(ctx); err != nil {
		b.interceptor.metrics.RecordTxn(ctx, name, observability.TxnRollback)
		return stderrors.Join(errors.DatabaseError("commit", name, err), b.res.Rollback(ctx))
	}
	b.interceptor.metrics.RecordTxn(ctx, name, observability.TxnCommit)
	return nil
}

// Call is Invoke for operations that return a value.
func Call[T any](ctx context.Context, b *Boundary, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Invoke(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

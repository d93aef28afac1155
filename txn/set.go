package txn

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/observability"
)

// Set tracks the resources used by one fixture run and sweeps transactions
// over all of them. Every Begin is matched by exactly one Commit or Rollback
// on each resource it began. A Set is owned by a single run and is not safe
// for concurrent use.
type Set struct {
	provider Provider
	order    []Resource
	byName   map[string]Resource
	began    []Resource
	log      *logger.Logger
	metrics  *observability.Metrics
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithSetLogger sets the logger used for sweep diagnostics.
func WithSetLogger(l *logger.Logger) SetOption {
	return func(s *Set) { s.log = l }
}

// WithSetMetrics sets the metric instruments for begin, commit and rollback counts.
func WithSetMetrics(m *observability.Metrics) SetOption {
	return func(s *Set) { s.metrics = m }
}

// NewSet creates an empty set backed by provider.
func NewSet(provider Provider, opts ...SetOption) *Set {
	s := &Set{
		provider: provider,
		byName:   make(map[string]Resource),
		log:      logger.Get("txn"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resource returns the named resource, opening and tracking it on first use.
func (s *Set) Resource(ctx context.Context, name string) (Resource, error) {
	name = Normalize(name)
	if r, ok := s.byName[name]; ok {
		return r, nil
	}
	r, err := s.provider.Open(ctx, name)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.DatabaseError("open", name, err)
	}
	s.byName[name] = r
	s.order = append(s.order, r)
	s.log.Debug("Resource tracked", map[string]interface{}{
		logger.FieldResource: name,
		logger.FieldCount:    len(s.order),
	})
	return r, nil
}

// Default returns the default resource.
func (s *Set) Default(ctx context.Context) (Resource, error) {
	return s.Resource(ctx, DefaultName)
}

// Resources returns the tracked resources in the order they were opened.
func (s *Set) Resources() []Resource {
	return append([]Resource(nil), s.order...)
}

// Begin opens a transaction on every tracked resource that has none. If a
// begin fails, the transactions opened by this call are rolled back.
func (s *Set) Begin(ctx context.Context) error {
	for _, r := range s.order {
		if r.Active() {
			continue
		}
		if err := r.Begin(ctx); err != nil {
			rbErr := s.Rollback(ctx)
			return stderrors.Join(errors.DatabaseError("begin", r.Name(), err), rbErr)
		}
		s.metrics.RecordTxn(ctx, r.Name(), observability.TxnBegin)
		s.began = append(s.began, r)
	}
	s.log.Debug("Transactions opened", map[string]interface{}{
		logger.FieldOperation: observability.TxnBegin,
		logger.FieldCount:     len(s.began),
	})
	return nil
}

// Commit commits every transaction opened by Begin. When a commit fails,
// that resource and the ones not yet committed are rolled back.
func (s *Set) Commit(ctx context.Context) error {
	began := s.began
	s.began = nil
	for i, r := range began {
		if err := r.Commit(ctx); err != nil {
			errs := []error{errors.DatabaseError("commit", r.Name(), err)}
			for _, rest := range began[i:] {
				errs = append(errs, s.rollbackOne(ctx, rest))
			}
			return stderrors.Join(errs...)
		}
		s.metrics.RecordTxn(ctx, r.Name(), observability.TxnCommit)
	}
	return nil
}

// Rollback rolls back every transaction opened by Begin, in reverse order.
// All resources are attempted and failures are returned joined.
func (s *Set) Rollback(ctx context.Context) error {
	began := s.began
	s.began = nil
	var errs []error
	for i := len(began) - 1; i >= 0; i-- {
		errs = append(errs, s.rollbackOne(ctx, began[i]))
	}
	return stderrors.Join(errs...)
}

func (s *Set) rollbackOne(ctx context.Context, r Resource) error {
	s.metrics.RecordTxn(ctx, r.Name(), observability.TxnRollback)
	if err := r.Rollback(ctx); err != nil {
		s.log.Warn("Rollback failed", logger.MergeWithError(map[string]interface{}{
			logger.FieldResource: r.Name(),
		}, err))
		return errors.DatabaseError("rollback", r.Name(), err)
	}
	return nil
}

// Clear clears every tracked resource.
func (s *Set) Clear(ctx context.Context) error {
	var errs []error
	for _, r := range s.order {
		if err := r.Clear(ctx); err != nil {
			errs = append(errs, errors.DatabaseError("clear", r.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}

// Pending reports how many transactions are open from the last Begin.
func (s *Set) Pending() int {
	return len(s.began)
}

// Within runs fn inside one transaction sweep: begin, then commit on success
// or rollback on error, then clear. A panic in fn rolls back and re-panics.
func (s *Set) Within(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := s.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.Rollback(ctx)
			_ = s.Clear(ctx)
			s.log.Error("Transactions rolled back due to panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			panic(r)
		}
	}()

	if fnErr := fn(ctx); fnErr != nil {
		return stderrors.Join(fnErr, s.Rollback(ctx), s.Clear(ctx))
	}
	if err := s.Commit(ctx); err != nil {
		return stderrors.Join(err, s.Clear(ctx))
	}
	return s.Clear(ctx)
}

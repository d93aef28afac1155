package fixture

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/fixturekit/di"
	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/generator"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/observability"
	"github.com/kbukum/fixturekit/txn"
)

// State is a position in the run lifecycle.
type State int

const (
	Idle State = iota
	Building
	GeneratePhase
	TestBody
	CleanupPhase
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case GeneratePhase:
		return "generate"
	case TestBody:
		return "body"
	case CleanupPhase:
		return "cleanup"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Body is the test body wrapped by a Statement.
type Body func(ctx context.Context) error

// Statement is a test body wrapped with a full fixture run.
type Statement interface {
	// Execute runs Building, GeneratePhase, the body and CleanupPhase. The
	// returned error joins the failures of every phase that ran.
	Execute(ctx context.Context) error
}

type statement struct {
	m    *Manager
	body Body
	meta Metadata
}

func (s *statement) Execute(ctx context.Context) error {
	return s.m.execute(ctx, s.body, s.meta)
}

var errAbnormalExit = stderrors.New("test body exited without returning")

// Manager runs fixture runs, one at a time.
type Manager struct {
	env *Environment
	log *logger.Logger

	mu    sync.Mutex
	state State
	run   *run
	// cleanup failure of a run whose body panicked or called runtime.Goexit
	abnormalErr error
}

type run struct {
	name        string
	meta        Metadata
	order       []reflect.Type
	generators  map[reflect.Type]any
	finderOrder []reflect.Type
	finders     map[reflect.Type]any
	set         *txn.Set
	injector    *di.Injector
	interceptor *txn.Interceptor
	summary     *logger.RunSummary
}

func newManager(env *Environment) *Manager {
	return &Manager{env: env, log: env.log}
}

// Apply wraps body so that executing it performs a full fixture run.
func (m *Manager) Apply(body Body, meta Metadata) Statement {
	return &statement{m: m, body: body, meta: meta}
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) current() *run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run
}

// Generator returns the generator of type t built for the current run.
func (m *Manager) Generator(t reflect.Type) (any, error) {
	r := m.current()
	if r == nil {
		return nil, errors.UnknownGenerator(di.QualifiedName(t))
	}
	g, ok := r.generators[t]
	if !ok {
		return nil, errors.UnknownGenerator(di.QualifiedName(t))
	}
	return g, nil
}

// Get returns the generator of type T built for the current run.
func Get[T any](m *Manager) (T, error) {
	var zero T
	g, err := m.Generator(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	out, ok := g.(T)
	if !ok {
		return zero, errors.UnknownGenerator(di.QualifiedName(reflect.TypeFor[T]()))
	}
	return out, nil
}

// Finder returns the finder of type t built for the current run.
func (m *Manager) Finder(t reflect.Type) (any, error) {
	r := m.current()
	if r == nil {
		return nil, errors.UnknownFinder(di.QualifiedName(t))
	}
	f, ok := r.finders[t]
	if !ok {
		return nil, errors.UnknownFinder(di.QualifiedName(t))
	}
	return f, nil
}

// GetFinder returns the finder of type T built for the current run.
func GetFinder[T any](m *Manager) (T, error) {
	var zero T
	f, err := m.Finder(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	out, ok := f.(T)
	if !ok {
		return zero, errors.UnknownFinder(di.QualifiedName(reflect.TypeFor[T]()))
	}
	return out, nil
}

// Store returns the current run's ContextStore, or nil outside a run.
func (m *Manager) Store() *di.ContextStore {
	r := m.current()
	if r == nil {
		return nil
	}
	return r.injector.Store()
}

// Resource returns a managed resource of the current run. An empty name
// means the default resource.
func (m *Manager) Resource(ctx context.Context, name string) (txn.Resource, error) {
	r := m.current()
	if r == nil {
		return nil, errors.Configuration("no fixture run in progress")
	}
	return r.set.Resource(ctx, name)
}

// AbnormalExitError returns and clears the cleanup error recorded when a
// body panicked or called runtime.Goexit.
func (m *Manager) AbnormalExitError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.abnormalErr
	m.abnormalErr = nil
	return err
}

func (m *Manager) execute(ctx context.Context, body Body, meta Metadata) (err error) {
	name := meta.runName()
	ctx = logger.ContextWithRun(ctx, name)
	ctx, span := observability.StartSpan(ctx, observability.SpanRun,
		trace.WithAttributes(attribute.String(observability.AttrRun, name)))
	summary := logger.NewRunSummary(name)
	log := m.log.WithContext(ctx)

	defer func() {
		status := observability.StatusOK
		if err != nil || summary.Failed() {
			status = observability.StatusFailed
		}
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
		span.SetAttributes(attribute.String(observability.AttrStatus, status))
		span.End()
		m.env.metrics.RecordRun(ctx, status)
		summary.Log(log)
	}()

	r, err := m.build(ctx, meta, summary)
	if err != nil {
		summary.RecordPhase(observability.PhaseBody, observability.StatusSkipped, 0)
		fields := logger.MergeWithError(nil, err)
		fields["misconfigured"] = errors.IsBuildCode(errors.CodeOf(err))
		log.Warn("Build failed, test body skipped", fields)
		return err
	}
	defer m.finish()

	if err := m.env.createState(ctx, m.defaultResource(ctx, r)); err != nil {
		return err
	}

	genErr := m.generate(ctx, r)
	if genErr != nil && !m.env.cfg.RunBodyAfterGenerateFailure {
		summary.RecordPhase(observability.PhaseBody, observability.StatusSkipped, 0)
		log.Warn("Generation failed, test body skipped", logger.MergeWithError(nil, genErr))
		return genErr
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		if cleanupErr := m.cleanupAndRestore(ctx, r); cleanupErr != nil {
			log.Error("Cleanup after abnormal body exit failed", logger.MergeWithError(nil, cleanupErr))
			m.mu.Lock()
			m.abnormalErr = cleanupErr
			m.mu.Unlock()
		}
	}()
	bodyErr := m.runBody(ctx, r, body)
	completed = true

	if meta.SkipCleanup || (bodyErr != nil && m.env.cfg.SkipCleanupOnBodyFailure) {
		summary.RecordPhase(observability.PhaseCleanup, observability.StatusSkipped, 0)
		return stderrors.Join(genErr, bodyErr)
	}
	return stderrors.Join(genErr, bodyErr, m.cleanupAndRestore(ctx, r))
}

// build discards the previous run and constructs and injects the requested
// generators and finders. Every generator and finder is adopted before any is
// injected, so singleton slots of those types receive the run's instance.
func (m *Manager) build(ctx context.Context, meta Metadata, summary *logger.RunSummary) (*run, error) {
	m.mu.Lock()
	m.run = nil
	m.state = Building
	m.mu.Unlock()

	env := m.env
	r := &run{
		name:       meta.runName(),
		meta:       meta,
		generators: make(map[reflect.Type]any, len(meta.Generators)),
		finders:    make(map[reflect.Type]any, len(meta.Finders)),
		summary:    summary,
	}
	r.set = txn.NewSet(env.provider,
		txn.WithSetLogger(m.log.WithComponent("txn")),
		txn.WithSetMetrics(env.metrics))
	r.interceptor = txn.NewInterceptor(m.log.WithComponent("txn"), env.metrics)

	opts := []di.InjectorOption{
		di.WithOverrides(meta.Overrides),
		di.WithInjectorLogger(m.log.WithComponent("di")),
	}
	if !env.cfg.DisableInterception {
		opts = append(opts, di.WithInterceptor(r.interceptor))
	}
	r.injector = di.NewInjector(env.catalog, r.set, opts...)

	err := m.phase(ctx, r, observability.PhaseBuild, func(ctx context.Context) error {
		if _, err := r.set.Default(ctx); err != nil {
			return err
		}
		for _, t := range meta.Generators {
			if _, dup := r.generators[t]; dup {
				return errors.DuplicateGeneratorRegistration(di.QualifiedName(t))
			}
			g, err := env.catalog.New(t)
			if err != nil {
				return err
			}
			if !generator.Valid(g) {
				return errors.InjectionFailure(di.QualifiedName(t), "",
					"generator must implement generator.Generator or generator.BeforeAfter")
			}
			if err := r.injector.Adopt(g); err != nil {
				if stderrors.Is(err, di.ErrInstanceRegistered) {
					return errors.DuplicateGeneratorRegistration(di.QualifiedName(t)).WithCause(err)
				}
				return err
			}
			r.generators[t] = g
			r.order = append(r.order, t)
		}
		for _, t := range meta.Finders {
			if _, dup := r.finders[t]; dup {
				return errors.DuplicateFinderRegistration(di.QualifiedName(t))
			}
			f, err := env.catalog.New(t)
			if err != nil {
				return err
			}
			if err := r.injector.Adopt(f); err != nil {
				if stderrors.Is(err, di.ErrInstanceRegistered) {
					return errors.DuplicateFinderRegistration(di.QualifiedName(t)).WithCause(err)
				}
				return err
			}
			r.finders[t] = f
			r.finderOrder = append(r.finderOrder, t)
		}
		for _, t := range r.order {
			if err := r.injector.Inject(ctx, r.generators[t]); err != nil {
				return err
			}
		}
		for _, t := range r.finderOrder {
			if err := r.injector.Inject(ctx, r.finders[t]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.setState(Idle)
		return nil, err
	}

	m.mu.Lock()
	m.run = r
	m.mu.Unlock()
	return r, nil
}

func (m *Manager) generate(ctx context.Context, r *run) error {
	m.setState(GeneratePhase)
	return m.phase(ctx, r, observability.PhaseGenerate, func(ctx context.Context) error {
		return r.set.Within(ctx, func(ctx context.Context) error {
			for _, t := range r.order {
				name := di.QualifiedName(t)
				if err := generator.Run(ctx, r.generators[t]); err != nil {
					r.summary.RecordGenerator(name, name, observability.StatusFailed)
					return errors.LifecyclePhaseFailure(observability.PhaseGenerate, name, err)
				}
				r.summary.RecordGenerator(name, name, "generated")
			}
			return nil
		})
	})
}

func (m *Manager) runBody(ctx context.Context, r *run, body Body) error {
	m.setState(TestBody)
	if !m.env.cfg.DisableInterception {
		r.interceptor.Activate()
		defer r.interceptor.Deactivate()
	}
	return m.phase(ctx, r, observability.PhaseBody, func(ctx context.Context) error {
		return body(ctx)
	})
}

func (m *Manager) cleanupAndRestore(ctx context.Context, r *run) error {
	cleanupErr := m.cleanup(ctx, r)
	if !m.env.hasStateGenerator() {
		return cleanupErr
	}
	restoreErr := m.phase(ctx, r, observability.PhaseRestore, func(ctx context.Context) error {
		return m.env.restoreState(ctx, m.defaultResource(ctx, r))
	})
	return stderrors.Join(cleanupErr, restoreErr)
}

func (m *Manager) cleanup(ctx context.Context, r *run) error {
	m.setState(CleanupPhase)
	order := m.cleanupOrder(r)
	return m.phase(ctx, r, observability.PhaseCleanup, func(ctx context.Context) error {
		return r.set.Within(ctx, func(ctx context.Context) error {
			var errs []error
			for _, t := range order {
				if err := generator.Clean(ctx, r.generators[t]); err != nil {
					errs = append(errs, errors.LifecyclePhaseFailure(observability.PhaseCleanup, di.QualifiedName(t), err))
				}
			}
			return stderrors.Join(errs...)
		})
	})
}

func (m *Manager) cleanupOrder(r *run) []reflect.Type {
	if m.env.cfg.CleanupOrder == CleanupDeclaration {
		return r.order
	}
	out := make([]reflect.Type, len(r.order))
	for i, t := range r.order {
		out[len(r.order)-1-i] = t
	}
	return out
}

func (m *Manager) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = nil
	m.state = Idle
}

// defaultResource returns the run's default resource, opened at Building.
func (m *Manager) defaultResource(ctx context.Context, r *run) txn.Resource {
	res, err := r.set.Default(ctx)
	if err != nil {
		return nil
	}
	return res
}

// phase runs fn inside a span and records its outcome. A body that panics or
// calls runtime.Goexit is recorded as failed.
func (m *Manager) phase(ctx context.Context, r *run, name string, fn func(ctx context.Context) error) (err error) {
	pc := observability.NewPhaseContext(r.name, name, m.env.metrics)
	ctx, span := pc.Start(ctx)
	returned := false
	defer func() {
		if !returned {
			err = errAbnormalExit
		}
		status := pc.End(ctx, span, err)
		r.summary.RecordPhase(name, status, pc.Duration())
		fields := logger.DurationFields(name, pc.Duration())
		fields[logger.FieldPhase] = name
		if err != nil {
			m.log.WithContext(ctx).Debug("Phase failed", logger.MergeWithError(fields, err))
			return
		}
		m.log.WithContext(ctx).Debug("Phase completed", fields)
	}()
	err = fn(ctx)
	returned = true
	return err
}

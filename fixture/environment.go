package fixture

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/fixturekit/di"
	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/observability"
	"github.com/kbukum/fixturekit/state"
	"github.com/kbukum/fixturekit/testutil"
	"github.com/kbukum/fixturekit/txn"
)

// Hook is a callback run by Environment.Init or Environment.Teardown.
type Hook func(ctx context.Context) error

// Option configures an Environment.
type Option func(*envOptions)

type envOptions struct {
	logger     *logger.Logger
	catalog    *di.Catalog
	provider   txn.Provider
	metrics    *observability.Metrics
	components []testutil.TestComponent
}

func resolveOptions(opts []Option) *envOptions {
	o := &envOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. If not set, it is built from the config's
// logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *envOptions) { o.logger = l }
}

// WithCatalog sets the implementation catalog. If not set, an empty one is
// used and only pointer-to-struct slots resolve.
func WithCatalog(c *di.Catalog) Option {
	return func(o *envOptions) { o.catalog = c }
}

// WithProvider sets the provider of managed resources. If not set, the first
// component implementing txn.Provider is used.
func WithProvider(p txn.Provider) Option {
	return func(o *envOptions) { o.provider = p }
}

// WithMetrics sets the metric instruments. Defaults to the global meter.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *envOptions) { o.metrics = m }
}

// WithComponents adds infrastructure started by Init and stopped by Teardown.
func WithComponents(components ...testutil.TestComponent) Option {
	return func(o *envOptions) { o.components = append(o.components, components...) }
}

// Environment is the process-scoped part of fixture handling: configuration,
// catalog, resource provider, infrastructure components and the optional
// state generator. Managers built from it share all of these.
type Environment struct {
	cfg        Config
	catalog    *di.Catalog
	provider   txn.Provider
	metrics    *observability.Metrics
	components *testutil.Manager
	log        *logger.Logger

	onInit     []Hook
	onTeardown []Hook

	mu           sync.Mutex
	stateGen     state.Generator
	stateCreated bool
}

// NewEnvironment creates an environment from cfg. It applies defaults and
// validates cfg.
func NewEnvironment(cfg Config, opts ...Option) (*Environment, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := resolveOptions(opts)
	env := &Environment{
		cfg:        cfg,
		catalog:    o.catalog,
		provider:   o.provider,
		metrics:    o.metrics,
		components: testutil.NewManager(context.Background()),
		log:        o.logger,
	}
	if env.log == nil {
		env.log = cfg.NewLogger()
	}
	env.log = env.log.WithComponent("fixture")
	if env.catalog == nil {
		env.catalog = di.NewCatalog()
	}
	if env.metrics == nil {
		env.metrics = observability.DefaultMetrics()
	}

	for _, c := range o.components {
		if err := env.components.Add(c); err != nil {
			return nil, errors.Configuration(err.Error())
		}
		if p, ok := c.(txn.Provider); ok && env.provider == nil {
			env.provider = p
		}
	}
	if env.provider == nil {
		return nil, errors.Configuration("no resource provider: use WithProvider or add a component implementing txn.Provider")
	}
	return env, nil
}

// Config returns the effective configuration.
func (e *Environment) Config() Config { return e.cfg }

// Catalog returns the implementation catalog.
func (e *Environment) Catalog() *di.Catalog { return e.catalog }

// Components returns the infrastructure component manager.
func (e *Environment) Components() *testutil.Manager { return e.components }

// Logger returns the environment logger.
func (e *Environment) Logger() *logger.Logger { return e.log }

// OnInit registers hooks run at the end of Init.
func (e *Environment) OnInit(hooks ...Hook) {
	e.onInit = append(e.onInit, hooks...)
}

// OnTeardown registers hooks run at the start of Teardown.
func (e *Environment) OnTeardown(hooks ...Hook) {
	e.onTeardown = append(e.onTeardown, hooks...)
}

// Init starts infrastructure components in registration order and sets up
// the configured state generator.
func (e *Environment) Init(ctx context.Context) error {
	e.log.Debug("Starting fixture environment", map[string]interface{}{
		logger.FieldCount: len(e.components.Components()),
	})
	if err := e.components.StartAll(); err != nil {
		return err
	}

	if name := e.cfg.StateGenerator; name != "" {
		g, err := state.New(name)
		if err != nil {
			return err
		}
		if err := g.Configure(e.cfg.StateGeneratorOptions); err != nil {
			return errors.Configuration(fmt.Sprintf("state generator %q rejected its options", name)).WithCause(err)
		}
		e.mu.Lock()
		e.stateGen = g
		e.stateCreated = false
		e.mu.Unlock()
		e.log.Debug("State generator configured", map[string]interface{}{
			logger.FieldGenerator: name,
		})
	}

	return runHooks(ctx, e.onInit)
}

// Teardown runs teardown hooks and stops components in reverse order. All
// steps are attempted.
func (e *Environment) Teardown(ctx context.Context) error {
	return stderrors.Join(runHooks(ctx, e.onTeardown), e.components.StopAll())
}

// NewManager creates a Manager bound to this environment.
func (e *Environment) NewManager() *Manager {
	return newManager(e)
}

// createState runs the state generator's CreateState the first time it is
// called after Init succeeds. A failed attempt is retried by the next run.
func (e *Environment) createState(ctx context.Context, res txn.Resource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stateGen == nil || e.stateCreated {
		return nil
	}
	if err := e.stateGen.CreateState(ctx, res); err != nil {
		return errors.LifecyclePhaseFailure("create_state", e.cfg.StateGenerator, err)
	}
	e.stateCreated = true
	e.log.Debug("External state created", map[string]interface{}{
		logger.FieldGenerator: e.cfg.StateGenerator,
	})
	return nil
}

func (e *Environment) restoreState(ctx context.Context, res txn.Resource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stateGen == nil {
		return nil
	}
	if err := e.stateGen.RestoreState(ctx, res); err != nil {
		return errors.LifecyclePhaseFailure(observability.PhaseRestore, e.cfg.StateGenerator, err)
	}
	return nil
}

func (e *Environment) hasStateGenerator() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateGen != nil
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}

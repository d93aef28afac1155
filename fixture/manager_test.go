package fixture_test

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/fixturekit/di"
	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/generator"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/txn"
	txntest "github.com/kbukum/fixturekit/txn/testutil"
)

type orderLog struct {
	b strings.Builder
}

func (o *orderLog) add(s string) { o.b.WriteString(s) }

func (o *orderLog) String() string { return o.b.String() }

type OrderOne struct {
	Log *orderLog `fixture:"singleton"`
}

func (g *OrderOne) Generate(context.Context) error { g.Log.add("1"); return nil }
func (g *OrderOne) Cleanup(context.Context) error  { g.Log.add("4"); return nil }

type OrderTwo struct {
	Log *orderLog `fixture:"singleton"`
}

func (g *OrderTwo) Generate(context.Context) error { g.Log.add("2"); return nil }
func (g *OrderTwo) Cleanup(context.Context) error  { g.Log.add("3"); return nil }

// UserStore records create calls through its boundary.
type UserStore struct {
	boundary *txn.Boundary
	created  int
}

func (s *UserStore) UseBoundary(b *txn.Boundary) { s.boundary = b }

func (s *UserStore) CreateUser(ctx context.Context, name string) error {
	return s.boundary.Invoke(ctx, "CreateUser", func(context.Context) error {
		if name == "" {
			return fmt.Errorf("empty name")
		}
		s.created++
		return nil
	})
}

func (s *UserStore) Generate(ctx context.Context) error { return nil }
func (s *UserStore) Cleanup(ctx context.Context) error  { return nil }

type failing struct {
	generateErr error
	cleanupErr  error
	cleaned     bool
}

func (f *failing) Generate(context.Context) error { return f.generateErr }
func (f *failing) Cleanup(context.Context) error {
	f.cleaned = true
	return f.cleanupErr
}

type GenerateFails struct{ failing }

type Unresolvable interface {
	generator.Generator
}

func newEnv(t *testing.T, cfg fixture.Config, opts ...fixture.Option) (*fixture.Environment, *txntest.MemoryProvider) {
	t.Helper()
	provider := txntest.Provider(nil)
	opts = append([]fixture.Option{
		fixture.WithLogger(logger.Nop()),
		fixture.WithProvider(provider),
	}, opts...)
	env, err := fixture.NewEnvironment(cfg, opts...)
	require.NoError(t, err)
	require.NoError(t, env.Init(context.Background()))
	t.Cleanup(func() { _ = env.Teardown(context.Background()) })
	return env, provider
}

func execute(m *fixture.Manager, meta fixture.Metadata, body fixture.Body) error {
	return m.Apply(body, meta).Execute(context.Background())
}

func TestManager_ReverseCleanupOrder(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	var log *orderLog
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne](), fixture.TypeOf[*OrderTwo]()},
	}, func(context.Context) error {
		one, err := fixture.Get[*OrderOne](m)
		require.NoError(t, err)
		two, err := fixture.Get[*OrderTwo](m)
		require.NoError(t, err)
		assert.Same(t, one.Log, two.Log)
		log = one.Log
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "1234", log.String())
	assert.Equal(t, fixture.Idle, m.State())
}

func TestManager_DeclarationCleanupOrder(t *testing.T) {
	cfg := fixture.DefaultConfig()
	cfg.CleanupOrder = fixture.CleanupDeclaration
	env, _ := newEnv(t, cfg)
	m := env.NewManager()

	var log *orderLog
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne](), fixture.TypeOf[*OrderTwo]()},
	}, func(context.Context) error {
		one, err := fixture.Get[*OrderOne](m)
		require.NoError(t, err)
		log = one.Log
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "1243", log.String())
}

func TestManager_BeginCommitPairs(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*UserStore]()},
	}, func(ctx context.Context) error {
		store, err := fixture.Get[*UserStore](m)
		require.NoError(t, err)
		require.NoError(t, store.CreateUser(ctx, "ada"))
		require.NoError(t, store.CreateUser(ctx, "grace"))
		assert.Equal(t, 2, store.created)
		return nil
	})
	require.NoError(t, err)

	res := provider.Get(txn.DefaultName)
	assert.Equal(t, 4, res.Count("begin"))
	assert.Equal(t, 4, res.Count("commit"))
	assert.Equal(t, 0, res.Count("rollback"))
	assert.True(t, res.Balanced())
}

func TestManager_InterceptedFailureRollsBack(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*UserStore]()},
	}, func(ctx context.Context) error {
		store, err := fixture.Get[*UserStore](m)
		require.NoError(t, err)
		assert.Error(t, store.CreateUser(ctx, ""))
		return nil
	})
	require.NoError(t, err)

	res := provider.Get(txn.DefaultName)
	assert.Equal(t, 1, res.Count("rollback"))
	assert.True(t, res.Balanced())
}

func TestManager_DisableInterception(t *testing.T) {
	cfg := fixture.DefaultConfig()
	cfg.DisableInterception = true
	env, provider := newEnv(t, cfg)
	m := env.NewManager()

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*UserStore]()},
	}, func(ctx context.Context) error {
		store, err := fixture.Get[*UserStore](m)
		require.NoError(t, err)
		return store.CreateUser(ctx, "ada")
	})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.Get(txn.DefaultName).Count("begin"), "only the generate and cleanup sweeps")
}

func TestManager_BuildFailureSkipsBody(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	called := false
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne](), fixture.TypeOf[Unresolvable]()},
	}, func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoValidImplementationType))
	assert.False(t, called)
	assert.Equal(t, fixture.Idle, m.State())
	assert.Zero(t, provider.Get(txn.DefaultName).Count("begin"))
}

func TestManager_DuplicateGenerator(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	called := false
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne](), fixture.TypeOf[*OrderOne]()},
	}, func(context.Context) error {
		called = true
		return nil
	})

	assert.True(t, errors.HasCode(err, errors.ErrCodeDuplicateGeneratorRegistration))
	assert.False(t, called)
}

func TestManager_NotAGenerator(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*orderLog]()},
	}, func(context.Context) error { return nil })

	assert.True(t, errors.HasCode(err, errors.ErrCodeInjectionFailure))
}

func TestManager_UnknownGenerator(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	_, err := fixture.Get[*OrderOne](m)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownGenerator), "no run in progress")

	err = execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne]()},
	}, func(context.Context) error {
		_, err := fixture.Get[*OrderTwo](m)
		return err
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownGenerator))
}

func TestManager_GenerateFailureRollsBackAndSkipsBody(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()
	cause := fmt.Errorf("duplicate key")

	require.NoError(t, env.Catalog().Provide("", func() *GenerateFails {
		return &GenerateFails{failing{generateErr: cause}}
	}))
	called := false
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*GenerateFails]()},
	}, func(context.Context) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.HasCode(err, errors.ErrCodeLifecyclePhaseFailure))
	assert.False(t, called)

	res := provider.Get(txn.DefaultName)
	assert.Equal(t, 1, res.Count("rollback"))
	assert.True(t, res.Balanced())
}

type CleanupFails struct{ failing }

func TestManager_CleanupErrorDoesNotHideBodyError(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	require.NoError(t, env.Catalog().Provide("", func() *CleanupFails {
		return &CleanupFails{failing{cleanupErr: fmt.Errorf("fk violation")}}
	}))
	m := env.NewManager()
	bodyErr := fmt.Errorf("assertion failed")

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*CleanupFails]()},
	}, func(context.Context) error { return bodyErr })

	require.Error(t, err)
	assert.ErrorIs(t, err, bodyErr)
	assert.Contains(t, err.Error(), "fk violation")
	assert.True(t, errors.HasCode(err, errors.ErrCodeLifecyclePhaseFailure))
	assert.True(t, provider.Get(txn.DefaultName).Balanced())
}

func TestManager_SkipCleanup(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	var log *orderLog
	err := execute(m, fixture.Metadata{
		Generators:  []reflect.Type{fixture.TypeOf[*OrderOne]()},
		SkipCleanup: true,
	}, func(context.Context) error {
		one, err := fixture.Get[*OrderOne](m)
		require.NoError(t, err)
		log = one.Log
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "1", log.String())
}

func TestManager_SkipCleanupOnBodyFailure(t *testing.T) {
	cfg := fixture.DefaultConfig()
	cfg.SkipCleanupOnBodyFailure = true
	env, _ := newEnv(t, cfg)
	m := env.NewManager()

	var log *orderLog
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne]()},
	}, func(context.Context) error {
		one, _ := fixture.Get[*OrderOne](m)
		log = one.Log
		return fmt.Errorf("boom")
	})

	require.Error(t, err)
	assert.Equal(t, "1", log.String())
}

func TestManager_RunBodyAfterGenerateFailure(t *testing.T) {
	cfg := fixture.DefaultConfig()
	cfg.RunBodyAfterGenerateFailure = true
	env, _ := newEnv(t, cfg)
	require.NoError(t, env.Catalog().Provide("", func() *GenerateFails {
		return &GenerateFails{failing{generateErr: fmt.Errorf("insert failed")}}
	}))
	m := env.NewManager()

	var gen *GenerateFails
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*GenerateFails]()},
	}, func(context.Context) error {
		gen, _ = fixture.Get[*GenerateFails](m)
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	require.NotNil(t, gen, "body ran")
	assert.True(t, gen.cleaned)
}

type auditWriter struct {
	boundary *txn.Boundary
}

func (a *auditWriter) ResourceName() string         { return "audit" }
func (a *auditWriter) UseBoundary(b *txn.Boundary)  { a.boundary = b }
func (a *auditWriter) Generate(context.Context) error { return nil }
func (a *auditWriter) Cleanup(context.Context) error  { return nil }
func (a *auditWriter) DeleteAll(ctx context.Context) error {
	return a.boundary.Invoke(ctx, "DeleteAll", func(context.Context) error { return nil })
}

func TestManager_AlternateResourceIsSwept(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*auditWriter]()},
	}, func(ctx context.Context) error {
		w, err := fixture.Get[*auditWriter](m)
		require.NoError(t, err)
		assert.Equal(t, "audit", w.boundary.Resource().Name())
		return w.DeleteAll(ctx)
	})
	require.NoError(t, err)

	audit := provider.Get("audit")
	def := provider.Get(txn.DefaultName)
	assert.Equal(t, 3, audit.Count("begin"), "generate, DeleteAll, cleanup")
	assert.Equal(t, 2, def.Count("begin"), "generate, cleanup")
	assert.True(t, audit.Balanced())
	assert.True(t, def.Balanced())
}

type Notifier interface {
	Notify(msg string)
}

type recordingNotifier struct{ sent []string }

func (r *recordingNotifier) Notify(msg string) { r.sent = append(r.sent, msg) }

type SignupGenerator struct {
	Notifier Notifier `fixture:"singleton"`
}

func (g *SignupGenerator) Generate(context.Context) error {
	g.Notifier.Notify("welcome")
	return nil
}

func (g *SignupGenerator) Cleanup(context.Context) error { return nil }

func TestManager_Overrides(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()
	mock := &recordingNotifier{}

	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*SignupGenerator]()},
		Overrides:  map[reflect.Type]any{fixture.TypeOf[Notifier](): mock},
	}, func(context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, mock.sent)
}

func TestManager_PanicInBodyStillCleansUp(t *testing.T) {
	env, provider := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	var log *orderLog
	assert.Panics(t, func() {
		_ = execute(m, fixture.Metadata{
			Generators: []reflect.Type{fixture.TypeOf[*OrderOne](), fixture.TypeOf[*OrderTwo]()},
		}, func(context.Context) error {
			one, _ := fixture.Get[*OrderOne](m)
			log = one.Log
			panic("body exploded")
		})
	})

	assert.Equal(t, "1234", log.String())
	assert.NoError(t, m.AbnormalExitError())
	assert.Equal(t, fixture.Idle, m.State())
	assert.True(t, provider.Get(txn.DefaultName).Balanced())
}

func TestManager_StateTransitions(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()
	assert.Equal(t, fixture.Idle, m.State())

	var inBody fixture.State
	err := execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*OrderOne]()},
	}, func(context.Context) error {
		inBody = m.State()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, fixture.TestBody, inBody)
	assert.Equal(t, fixture.Idle, m.State())
	assert.Equal(t, "body", fixture.TestBody.String())
	assert.Equal(t, "cleanup", fixture.CleanupPhase.String())
}

type storeWriter struct {
	Ctx *di.ContextStore `fixture:"context"`

	sawPrevious bool
}

func (s *storeWriter) Generate(context.Context) error {
	_, s.sawPrevious = di.Load[*orderLog](s.Ctx)
	di.Store(s.Ctx, &orderLog{})
	return nil
}

func (s *storeWriter) Cleanup(context.Context) error { return nil }

func TestManager_ContextStoreIsPerRun(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	var first, second *orderLog
	var firstWriter, secondWriter *storeWriter
	require.NoError(t, execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*storeWriter](), fixture.TypeOf[*OrderOne]()},
	}, func(context.Context) error {
		first, _ = di.Load[*orderLog](m.Store())
		firstWriter, _ = fixture.Get[*storeWriter](m)
		return nil
	}))
	require.NoError(t, execute(m, fixture.Metadata{
		Generators: []reflect.Type{fixture.TypeOf[*storeWriter](), fixture.TypeOf[*OrderTwo]()},
	}, func(context.Context) error {
		second, _ = di.Load[*orderLog](m.Store())
		secondWriter, _ = fixture.Get[*storeWriter](m)

		_, err := fixture.Get[*OrderOne](m)
		assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownGenerator), "generators of the previous run are gone")
		return nil
	}))

	require.NotNil(t, firstWriter)
	require.NotNil(t, secondWriter)
	assert.NotSame(t, firstWriter, secondWriter)
	assert.False(t, firstWriter.sawPrevious)
	assert.False(t, secondWriter.sawPrevious, "the second run starts with an empty store")

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Nil(t, m.Store(), "no run in progress")
}

func TestManager_Resource(t *testing.T) {
	env, _ := newEnv(t, fixture.DefaultConfig())
	m := env.NewManager()

	_, err := m.Resource(context.Background(), "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))

	require.NoError(t, execute(m, fixture.Metadata{}, func(ctx context.Context) error {
		res, err := m.Resource(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, txn.DefaultName, res.Name())
		return nil
	}))
}

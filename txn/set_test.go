package txn_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/txn"
	txntest "github.com/kbukum/fixturekit/txn/testutil"
)

func newSet(t *testing.T) (*txn.Set, *txntest.MemoryProvider, *txntest.Journal) {
	t.Helper()
	journal := &txntest.Journal{}
	provider := txntest.Provider(journal)
	return txn.NewSet(provider), provider, journal
}

func TestSet_ResourceOpensOnce(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)

	def, err := set.Default(ctx)
	require.NoError(t, err)
	again, err := set.Resource(ctx, "")
	require.NoError(t, err)
	assert.Same(t, def, again)

	audit, err := set.Resource(ctx, "audit")
	require.NoError(t, err)
	assert.Equal(t, "audit", audit.Name())

	assert.Equal(t, []string{txn.DefaultName, "audit"}, provider.Opened())
	assert.Len(t, set.Resources(), 2)
}

func TestSet_OpenFailureIsDatabaseError(t *testing.T) {
	boom := stderrors.New("dial tcp: refused")
	set := txn.NewSet(txn.ProviderFunc(func(context.Context, string) (txn.Resource, error) {
		return nil, boom
	}))

	_, err := set.Default(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseError))
	assert.ErrorIs(t, err, boom)
}

func TestSet_WithinCommitsEveryResource(t *testing.T) {
	ctx := context.Background()
	set, provider, journal := newSet(t)
	_, _ = set.Default(ctx)
	_, _ = set.Resource(ctx, "audit")

	err := set.Within(ctx, func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, []string{
		"begin:default", "begin:audit",
		"commit:default", "commit:audit",
		"clear:default", "clear:audit",
	}, journal.Events())
	assert.True(t, provider.Get("").Balanced())
	assert.True(t, provider.Get("audit").Balanced())
	assert.Zero(t, set.Pending())
}

func TestSet_WithinRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)
	_, _ = set.Default(ctx)
	_, _ = set.Resource(ctx, "audit")

	fail := stderrors.New("insert failed")
	err := set.Within(ctx, func(ctx context.Context) error { return fail })
	require.ErrorIs(t, err, fail)

	for _, name := range []string{"", "audit"} {
		r := provider.Get(name)
		assert.Equal(t, 1, r.Count("rollback"), name)
		assert.Zero(t, r.Count("commit"), name)
		assert.Equal(t, 1, r.Count("clear"), name)
		assert.True(t, r.Balanced(), name)
	}
}

func TestSet_WithinPanicRollsBackAndRepanics(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)
	_, _ = set.Default(ctx)

	assert.PanicsWithValue(t, "boom", func() {
		_ = set.Within(ctx, func(ctx context.Context) error { panic("boom") })
	})
	r := provider.Get("")
	assert.Equal(t, 1, r.Count("rollback"))
	assert.True(t, r.Balanced())
	assert.False(t, r.Active())
}

func TestSet_BeginFailureRollsBackStarted(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)
	_, _ = set.Default(ctx)
	_, _ = set.Resource(ctx, "audit")
	provider.Get("audit").BeginErr = stderrors.New("locked")

	called := false
	err := set.Within(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called, "fn must not run when begin fails")
	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseError))

	def := provider.Get("")
	assert.Equal(t, []string{"begin", "rollback"}, def.Events())
	assert.Zero(t, set.Pending())
}

func TestSet_BeginSkipsActive(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)
	_, _ = set.Default(ctx)
	require.NoError(t, provider.Get("").Begin(ctx))

	require.NoError(t, set.Begin(ctx))
	assert.Zero(t, set.Pending())
	assert.Equal(t, 1, provider.Get("").Count("begin"))
}

func TestSet_CommitFailureRollsBackRemaining(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)
	_, _ = set.Default(ctx)
	_, _ = set.Resource(ctx, "audit")
	provider.Get("").CommitErr = stderrors.New("serialization failure")

	require.NoError(t, set.Begin(ctx))
	err := set.Commit(ctx)
	require.Error(t, err)

	def, audit := provider.Get(""), provider.Get("audit")
	assert.Equal(t, []string{"begin", "commit", "rollback"}, def.Events())
	assert.Equal(t, []string{"begin", "rollback"}, audit.Events())
	assert.False(t, audit.Active())
}

func TestSet_RollbackErrorsJoined(t *testing.T) {
	ctx := context.Background()
	set, provider, _ := newSet(t)
	_, _ = set.Default(ctx)
	_, _ = set.Resource(ctx, "audit")
	provider.Get("").RollbackErr = stderrors.New("conn closed")
	provider.Get("audit").RollbackErr = stderrors.New("conn reset")

	require.NoError(t, set.Begin(ctx))
	err := set.Rollback(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conn closed")
	assert.Contains(t, err.Error(), "conn reset")
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	def := txntest.NewResource("")
	p := txn.NewStaticProvider(def)

	r, err := p.Open(ctx, "")
	require.NoError(t, err)
	assert.Same(t, def, r)

	_, err = p.Open(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
}

type auditDao struct{}

func (auditDao) ResourceName() string { return "audit" }

func TestNameOf(t *testing.T) {
	assert.Equal(t, "audit", txn.NameOf(auditDao{}))
	assert.Equal(t, "", txn.NameOf(struct{}{}))
	assert.Equal(t, txn.DefaultName, txn.Normalize(""))
}

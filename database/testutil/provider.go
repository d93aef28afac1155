package testutil

import (
	"testing"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/testutil"
)

// NewProvider starts a database provider with a private in-memory default
// database and auto-migrates models into it. The provider is stopped when
// the test ends.
func NewProvider(t testing.TB, models ...interface{}) *database.Provider {
	t.Helper()
	p := database.NewProvider(
		map[string]database.Config{"": {AutoMigrate: len(models) > 0}},
		database.WithModels(models...),
		database.WithLogger(logger.Nop()),
	)
	testutil.T(t).Setup(p)
	return p
}

package fixture

import (
	"context"
	"testing"
)

// Run executes fn as the body of one fixture run under t. Phase failures and
// body failures are reported with t.Error. fn may call t.FailNow; cleanup
// still runs.
func Run(t *testing.T, m *Manager, meta Metadata, fn func(t *testing.T)) {
	t.Helper()
	if meta.Name == "" {
		meta.Name = t.Name()
	}

	defer func() {
		if err := m.AbnormalExitError(); err != nil {
			t.Errorf("fixture cleanup: %v", err)
		}
	}()

	stmt := m.Apply(func(context.Context) error {
		fn(t)
		return nil
	}, meta)
	if err := stmt.Execute(t.Context()); err != nil {
		t.Errorf("fixture run %s: %v", meta.Name, err)
	}
}

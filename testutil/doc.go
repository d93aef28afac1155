// Package testutil provides lifecycle helpers for infrastructure used by
// fixture tests.
//
// A TestComponent is a component.Component that can also reset, snapshot
// and restore its state. The fixture environment registers its components
// with a Manager, which starts them in order and stops them in reverse.
//
// # Quick Start
//
//	func TestMyFeature(t *testing.T) {
//	    testutil.T(t).Setup(provider)
//	    // provider is stopped when the test ends
//	}
//
// Managing multiple components:
//
//	manager := testutil.NewManager(ctx)
//	_ = manager.Add(provider)
//	if err := manager.StartAll(); err != nil {
//	    t.Fatal(err)
//	}
//	defer manager.Cleanup()
//
// All Manager operations are safe for concurrent use.
package testutil

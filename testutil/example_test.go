package testutil_test

import (
	"context"
	"fmt"

	"github.com/kbukum/fixturekit/testutil"
)

// ExampleManager starts components in order and stops them in reverse.
func ExampleManager() {
	events := &[]string{}
	manager := testutil.NewManager(context.Background())
	for _, name := range []string{"database", "cache"} {
		c := newMockComponent(name)
		c.events = events
		_ = manager.Add(c)
	}

	_ = manager.StartAll()
	_ = manager.Cleanup()

	for _, e := range *events {
		fmt.Println(e)
	}

	// Output:
	// start:database
	// start:cache
	// stop:cache
	// stop:database
}

// ExampleManager_SnapshotAll captures state before a run and restores it afterwards.
func ExampleManager_SnapshotAll() {
	db := newMockComponent("database")
	manager := testutil.NewManager(context.Background())
	_ = manager.Add(db)

	snaps, _ := manager.SnapshotAll()
	db.state["rows"] = "42"
	_ = manager.RestoreAll(snaps)

	fmt.Println(db.state["rows"])

	// Output: 0
}

package testutil_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/testutil"
)

func newTrackedManager(t *testing.T, names ...string) (*testutil.Manager, []*mockComponent, *[]string) {
	t.Helper()
	events := &[]string{}
	manager := testutil.NewManager(context.Background())
	comps := make([]*mockComponent, 0, len(names))
	for _, name := range names {
		c := newMockComponent(name)
		c.events = events
		if err := manager.Add(c); err != nil {
			t.Fatalf("Add(%s) failed: %v", name, err)
		}
		comps = append(comps, c)
	}
	return manager, comps, events
}

func TestManager_AddDuplicate(t *testing.T) {
	manager, _, _ := newTrackedManager(t, "db")
	err := manager.Add(newMockComponent("db"))
	if err == nil {
		t.Fatal("expected error for duplicate component name")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("unexpected error %q", err.Error())
	}
	if len(manager.Components()) != 1 {
		t.Errorf("expected 1 component, got %d", len(manager.Components()))
	}
}

func TestManager_StartStopOrder(t *testing.T) {
	manager, comps, events := newTrackedManager(t, "db", "cache", "broker")

	if err := manager.StartAll(); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	for _, c := range comps {
		if !c.started {
			t.Errorf("component %s not started", c.name)
		}
	}
	if err := manager.StopAll(); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	want := []string{
		"start:db", "start:cache", "start:broker",
		"stop:broker", "stop:cache", "stop:db",
	}
	if strings.Join(*events, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, *events)
	}
}

func TestManager_StartAllIdempotent(t *testing.T) {
	manager, _, events := newTrackedManager(t, "db")
	_ = manager.StartAll()
	_ = manager.StartAll()
	if len(*events) != 1 {
		t.Errorf("expected a single start, got %v", *events)
	}
}

func TestManager_StartError(t *testing.T) {
	manager, comps, events := newTrackedManager(t, "db", "cache")
	comps[1].startErr = errors.New("port in use")

	err := manager.StartAll()
	if err == nil {
		t.Fatal("expected start error")
	}
	if !strings.Contains(err.Error(), "cache") {
		t.Errorf("expected component name in error, got %q", err.Error())
	}

	// Only the started component is stopped
	*events = nil
	if err := manager.StopAll(); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if strings.Join(*events, ",") != "stop:db" {
		t.Errorf("expected only db to stop, got %v", *events)
	}
}

func TestManager_StopErrorsJoined(t *testing.T) {
	manager, comps, _ := newTrackedManager(t, "db", "cache")
	_ = manager.StartAll()
	errDB := errors.New("db stop failed")
	errCache := errors.New("cache stop failed")
	comps[0].stopErr = errDB
	comps[1].stopErr = errCache

	err := manager.StopAll()
	if !errors.Is(err, errDB) || !errors.Is(err, errCache) {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestManager_ResetAll(t *testing.T) {
	manager, comps, _ := newTrackedManager(t, "db", "cache")
	if err := manager.ResetAll(); err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}
	for _, c := range comps {
		if !c.resetCalled {
			t.Errorf("component %s not reset", c.name)
		}
	}

	comps[0].resetErr = errors.New("locked")
	if err := manager.ResetAll(); err == nil {
		t.Error("expected reset error")
	}
}

func TestManager_SnapshotRestoreAll(t *testing.T) {
	manager, comps, _ := newTrackedManager(t, "db", "cache")

	snaps, err := manager.SnapshotAll()
	if err != nil {
		t.Fatalf("SnapshotAll failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}

	comps[0].state["rows"] = "10"
	comps[1].state["rows"] = "3"
	delete(snaps, "cache")

	if err := manager.RestoreAll(snaps); err != nil {
		t.Fatalf("RestoreAll failed: %v", err)
	}
	if comps[0].state["rows"] != "0" {
		t.Errorf("expected db restored, got %v", comps[0].state)
	}
	if comps[1].state["rows"] != "3" {
		t.Errorf("expected cache untouched without a snapshot, got %v", comps[1].state)
	}
}

func TestManager_SnapshotError(t *testing.T) {
	manager, comps, _ := newTrackedManager(t, "db")
	comps[0].snapshotErr = errors.New("no access")
	if _, err := manager.SnapshotAll(); err == nil {
		t.Error("expected snapshot error")
	}
}

func TestManager_RestoreErrorsJoined(t *testing.T) {
	manager, comps, _ := newTrackedManager(t, "db", "cache")
	snaps, _ := manager.SnapshotAll()
	comps[0].restoreErr = errors.New("db")
	comps[1].restoreErr = errors.New("cache")

	err := manager.RestoreAll(snaps)
	if err == nil {
		t.Fatal("expected restore error")
	}
	if !strings.Contains(err.Error(), "db") || !strings.Contains(err.Error(), "cache") {
		t.Errorf("expected both failures, got %q", err.Error())
	}
}

func TestManager_GetAndHealth(t *testing.T) {
	manager, _, _ := newTrackedManager(t, "db", "cache")
	if manager.Get("cache") == nil {
		t.Error("expected to find cache")
	}
	if manager.Get("missing") != nil {
		t.Error("expected nil for unknown component")
	}

	_ = manager.StartAll()
	for _, h := range manager.HealthAll() {
		if h.Status != component.StatusHealthy {
			t.Errorf("expected %s healthy, got %s", h.Name, h.Status)
		}
	}
	_ = manager.Cleanup()
	for _, h := range manager.HealthAll() {
		if h.Status != component.StatusUnhealthy {
			t.Errorf("expected %s unhealthy after cleanup, got %s", h.Name, h.Status)
		}
	}
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/logger"
)

type managedEntry struct {
	component TestComponent
	started   bool
}

// Manager provides lifecycle management for multiple test components.
// Components start in registration order and stop in reverse order.
type Manager struct {
	ctx     context.Context
	entries []*managedEntry
	mu      sync.RWMutex
	log     *logger.Logger
}

// NewManager creates a new test component manager.
func NewManager(ctx context.Context) *Manager {
	return &Manager{
		ctx:     ctx,
		entries: make([]*managedEntry, 0),
		log:     logger.Get("testutil"),
	}
}

// Add registers a test component with the manager. Names must be unique.
func (m *Manager) Add(c TestComponent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.component.Name() == c.Name() {
			return fmt.Errorf("component %s already registered", c.Name())
		}
	}
	m.entries = append(m.entries, &managedEntry{component: c})
	m.log.Debug("Component registered", map[string]interface{}{
		logger.FieldComponent: c.Name(),
	})
	return nil
}

// Components returns all registered components in registration order.
func (m *Manager) Components() []TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]TestComponent, len(m.entries))
	for i, e := range m.entries {
		result[i] = e.component
	}
	return result
}

// Get retrieves a component by name.
// Returns nil if no component with the given name is found.
func (m *Manager) Get(name string) TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.component.Name() == name {
			return e.component
		}
	}
	return nil
}

// StartAll starts all registered components in order. Already started
// components are skipped. The first failure is returned immediately.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.started {
			continue
		}
		name := e.component.Name()
		if err := e.component.Start(m.ctx); err != nil {
			m.log.Error("Component start failed", logger.MergeWithError(map[string]interface{}{
				logger.FieldComponent: name,
			}, err))
			return fmt.Errorf("failed to start component %s: %w", name, err)
		}
		e.started = true
		m.log.Debug("Component started", map[string]interface{}{logger.FieldComponent: name})
	}
	return nil
}

// StopAll stops started components in reverse order. Every component is
// attempted and all failures are returned joined.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if !e.started {
			continue
		}
		name := e.component.Name()
		if err := e.component.Stop(m.ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop component %s: %w", name, err))
			m.log.Error("Component stop failed", logger.MergeWithError(map[string]interface{}{
				logger.FieldComponent: name,
			}, err))
		} else {
			m.log.Debug("Component stopped", map[string]interface{}{logger.FieldComponent: name})
		}
		e.started = false
	}

	return errors.Join(errs...)
}

// ResetAll resets all registered components to their initial state.
// If any component fails to reset, returns immediately with that error.
func (m *Manager) ResetAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if err := e.component.Reset(m.ctx); err != nil {
			return fmt.Errorf("failed to reset component %s: %w", e.component.Name(), err)
		}
	}
	return nil
}

// SnapshotAll captures every component's state, keyed by component name.
func (m *Manager) SnapshotAll() (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots := make(map[string]interface{}, len(m.entries))
	for _, e := range m.entries {
		snap, err := e.component.Snapshot(m.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot component %s: %w", e.component.Name(), err)
		}
		snapshots[e.component.Name()] = snap
	}
	return snapshots, nil
}

// RestoreAll restores every component that has an entry in snapshots.
// All components are attempted and failures are returned joined.
func (m *Manager) RestoreAll(snapshots map[string]interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, e := range m.entries {
		snap, ok := snapshots[e.component.Name()]
		if !ok {
			continue
		}
		if err := e.component.Restore(m.ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore component %s: %w", e.component.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// HealthAll returns health status for all registered components.
func (m *Manager) HealthAll() []component.Health {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]component.Health, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, e.component.Health(m.ctx))
	}
	return results
}

// Cleanup is an alias for StopAll, provided for use with defer or t.Cleanup.
func (m *Manager) Cleanup() error {
	return m.StopAll()
}

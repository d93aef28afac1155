// Package state holds the registry of external state generators: named,
// process-scoped hooks that prepare the store once before the first fixture
// run and bring it back after every cleanup.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/txn"
)

// Generator prepares and restores external state around fixture runs.
type Generator interface {
	// Configure receives the state_generator_options of the fixture config.
	Configure(options map[string]any) error
	// CreateState runs once, before the first generate phase.
	CreateState(ctx context.Context, res txn.Resource) error
	// RestoreState runs after every cleanup phase.
	RestoreState(ctx context.Context, res txn.Resource) error
}

// Factory creates an unconfigured Generator.
type Factory func() Generator

var registry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

// Register makes a generator available under name, replacing any previous
// factory with that name. Packages usually call it from init.
func Register(name string, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[name] = factory
}

// Unregister removes the factory registered under name.
func Unregister(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.factories, name)
}

// Registered reports whether a factory exists for name.
func Registered(name string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	_, ok := registry.factories[name]
	return ok
}

// New creates the generator registered under name.
func New(name string) (Generator, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[name]
	registry.mu.RUnlock()
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("state generator %q is not registered", name)).
			WithDetail("available", List())
	}
	return factory(), nil
}

// List returns the sorted names of all registered generators.
func List() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

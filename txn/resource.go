package txn

import (
	"context"
	"fmt"

	"github.com/kbukum/fixturekit/errors"
)

// DefaultName is the name of the resource used when no alternate is requested.
const DefaultName = "default"

// Resource is a transactional handle owned by a fixture run.
type Resource interface {
	// Name identifies the resource within a run.
	Name() string
	// Begin opens a transaction.
	Begin(ctx context.Context) error
	// Commit commits the open transaction.
	Commit(ctx context.Context) error
	// Rollback discards the open transaction.
	Rollback(ctx context.Context) error
	// Clear drops any cached state so the next read goes to the store.
	Clear(ctx context.Context) error
	// Active reports whether a transaction is open.
	Active() bool
}

// Provider opens resources by name. An empty name means DefaultName.
type Provider interface {
	Open(ctx context.Context, name string) (Resource, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, name string) (Resource, error)

// Open calls f.
func (f ProviderFunc) Open(ctx context.Context, name string) (Resource, error) {
	return f(ctx, name)
}

// Named is implemented by components that work against an alternate resource
// instead of the default one.
type Named interface {
	ResourceName() string
}

// NameOf returns the alternate resource name declared by v, or "".
func NameOf(v any) string {
	if n, ok := v.(Named); ok {
		return n.ResourceName()
	}
	return ""
}

// Normalize maps an empty name to DefaultName.
func Normalize(name string) string {
	if name == "" {
		return DefaultName
	}
	return name
}

type staticProvider struct {
	resources map[string]Resource
}

// NewStaticProvider returns a Provider serving a fixed set of resources,
// keyed by their Name.
func NewStaticProvider(resources ...Resource) Provider {
	p := &staticProvider{resources: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		p.resources[Normalize(r.Name())] = r
	}
	return p
}

func (p *staticProvider) Open(_ context.Context, name string) (Resource, error) {
	r, ok := p.resources[Normalize(name)]
	if !ok {
		return nil, errors.Configuration(fmt.Sprintf("no resource named %q", Normalize(name)))
	}
	return r, nil
}

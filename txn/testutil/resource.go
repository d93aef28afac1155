// Package testutil provides an in-memory txn.Resource that records every
// transaction call, for asserting begin/commit balance in tests.
package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/fixturekit/txn"
)

// Resource is a recording txn.Resource.
type Resource struct {
	mu     sync.Mutex
	name   string
	active bool
	events []string

	// Failure injection; each is returned by the next matching call.
	BeginErr    error
	CommitErr   error
	RollbackErr error
	ClearErr    error

	// Journal, when set, receives "<op>:<name>" for every call across resources.
	Journal *Journal
}

// Journal is a shared, ordered event log.
type Journal struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event.
func (j *Journal) Add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

// Events returns a copy of the recorded events.
func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

// NewResource creates a recording resource. An empty name means txn.DefaultName.
func NewResource(name string) *Resource {
	return &Resource{name: txn.Normalize(name)}
}

// Name implements txn.Resource.
func (r *Resource) Name() string { return r.name }

func (r *Resource) record(op string) {
	r.events = append(r.events, op)
	if r.Journal != nil {
		r.Journal.Add(op + ":" + r.name)
	}
}

// Begin implements txn.Resource.
func (r *Resource) Begin(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("begin")
	if r.BeginErr != nil {
		return r.BeginErr
	}
	r.active = true
	return nil
}

// Commit implements txn.Resource.
func (r *Resource) Commit(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("commit")
	if r.CommitErr != nil {
		return r.CommitErr
	}
	r.active = false
	return nil
}

// Rollback implements txn.Resource.
func (r *Resource) Rollback(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("rollback")
	r.active = false
	return r.RollbackErr
}

// Clear implements txn.Resource.
func (r *Resource) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("clear")
	return r.ClearErr
}

// Active implements txn.Resource.
func (r *Resource) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Events returns the operations recorded on this resource.
func (r *Resource) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many times op was called.
func (r *Resource) Count(op string) int {
	n := 0
	for _, e := range r.Events() {
		if e == op {
			n++
		}
	}
	return n
}

// Balanced reports whether every begin was matched by a commit or rollback.
func (r *Resource) Balanced() bool {
	return r.Count("begin") == r.Count("commit")+r.Count("rollback")
}

// Reset clears recorded events and failure injection.
func (r *Resource) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.active = false
	r.BeginErr, r.CommitErr, r.RollbackErr, r.ClearErr = nil, nil, nil, nil
}

// Provider returns a txn.Provider serving resources created on demand and
// remembered by name, all sharing journal (which may be nil).
func Provider(journal *Journal) *MemoryProvider {
	return &MemoryProvider{journal: journal, resources: make(map[string]*Resource)}
}

// MemoryProvider opens recording resources by name.
type MemoryProvider struct {
	mu        sync.Mutex
	journal   *Journal
	resources map[string]*Resource
	opened    []string
}

// Open implements txn.Provider.
func (p *MemoryProvider) Open(_ context.Context, name string) (txn.Resource, error) {
	return p.Get(name), nil
}

// Get returns the resource for name, creating it if needed.
func (p *MemoryProvider) Get(name string) *Resource {
	p.mu.Lock()
	defer p.mu.Unlock()
	name = txn.Normalize(name)
	r, ok := p.resources[name]
	if !ok {
		r = NewResource(name)
		r.Journal = p.journal
		p.resources[name] = r
		p.opened = append(p.opened, name)
	}
	return r
}

// Opened returns resource names in creation order.
func (p *MemoryProvider) Opened() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.opened...)
}

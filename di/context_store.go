package di

import "reflect"

// ContextStore is a run-scoped bag of values keyed by type, shared by every
// component with a context slot. Writes replace.
type ContextStore struct {
	values map[reflect.Type]any
}

// NewContextStore creates an empty store.
func NewContextStore() *ContextStore {
	return &ContextStore{values: make(map[reflect.Type]any)}
}

// Put stores v under its dynamic type.
func (s *ContextStore) Put(v any) {
	if v == nil {
		return
	}
	s.values[reflect.TypeOf(v)] = v
}

// PutAs stores v under t.
func (s *ContextStore) PutAs(t reflect.Type, v any) {
	s.values[t] = v
}

// Get returns the value stored under t.
func (s *ContextStore) Get(t reflect.Type) (any, bool) {
	v, ok := s.values[t]
	return v, ok
}

// Len returns the number of stored values.
func (s *ContextStore) Len() int { return len(s.values) }

// Store puts v under T, which may be an interface type.
func Store[T any](s *ContextStore, v T) {
	s.PutAs(reflect.TypeFor[T](), v)
}

// Load returns the value stored under T.
func Load[T any](s *ContextStore) (T, bool) {
	v, ok := s.Get(reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

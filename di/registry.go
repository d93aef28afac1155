package di

import "reflect"

// InstanceRegistry holds the run-wide singleton per implementation key.
// An instance is indexed under the key of its dynamic type and, when that
// differs, under the key it was requested by. It belongs to one run and is
// not safe for concurrent use.
type InstanceRegistry struct {
	instances map[string]any
	// primary keys only
	order []string
}

// NewInstanceRegistry creates an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{instances: make(map[string]any)}
}

// Get returns the instance registered under key.
func (r *InstanceRegistry) Get(key string) (any, bool) {
	v, ok := r.instances[key]
	return v, ok
}

// Put registers instance under key. It reports false, leaving the registry
// unchanged, when key is taken.
func (r *InstanceRegistry) Put(key string, instance any) bool {
	if _, exists := r.instances[key]; exists {
		return false
	}
	r.instances[key] = instance
	r.order = append(r.order, key)
	return true
}

// GetOrCreate returns the instance under key, calling create when absent.
// The result is registered under the key of its dynamic type with key as an
// alias. When an instance of that dynamic type already exists, the fresh one
// is discarded and the existing one is aliased instead. created reports
// whether the returned instance is new.
func (r *InstanceRegistry) GetOrCreate(key string, create func() (any, error)) (instance any, created bool, err error) {
	if v, ok := r.instances[key]; ok {
		return v, false, nil
	}
	v, err := create()
	if err != nil {
		return nil, false, err
	}
	concrete, err := ImplementationKey(reflect.TypeOf(v))
	if err != nil {
		concrete = key
	}
	if existing, ok := r.instances[concrete]; ok {
		r.instances[key] = existing
		return existing, false, nil
	}
	r.Put(concrete, v)
	r.instances[key] = v
	return v, true, nil
}

// Keys returns the primary key of every instance in registration order.
func (r *InstanceRegistry) Keys() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of distinct instances.
func (r *InstanceRegistry) Len() int { return len(r.order) }

// PathRegistry records the dotted path of every nested instance in a run.
type PathRegistry struct {
	paths map[string]string
	order []string
}

// NewPathRegistry creates an empty registry.
func NewPathRegistry() *PathRegistry {
	return &PathRegistry{paths: make(map[string]string)}
}

// RegisterOnce records path for the implementation key. It reports false
// when the path is already taken.
func (r *PathRegistry) RegisterOnce(path, implementation string) bool {
	if _, exists := r.paths[path]; exists {
		return false
	}
	r.paths[path] = implementation
	r.order = append(r.order, path)
	return true
}

// Lookup returns the implementation key recorded for path.
func (r *PathRegistry) Lookup(path string) (string, bool) {
	impl, ok := r.paths[path]
	return impl, ok
}

// Paths returns recorded paths in registration order.
func (r *PathRegistry) Paths() []string {
	return append([]string(nil), r.order...)
}

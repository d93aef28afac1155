package di

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// RegistrationMode tells how a catalog entry builds instances.
type RegistrationMode int

const (
	// Prototype entries are constructed with reflect.New.
	Prototype RegistrationMode = iota
	// Constructor entries call a registered function.
	Constructor
)

func (m RegistrationMode) String() string {
	if m == Constructor {
		return "constructor"
	}
	return "prototype"
}

// RegistrationInfo describes a catalog entry for introspection.
type RegistrationInfo struct {
	Key  string
	Type string
	Mode RegistrationMode
}

type registration struct {
	key         string
	typ         reflect.Type
	mode        RegistrationMode
	constructor reflect.Value
}

// Catalog maps implementation keys to the types that satisfy them.
// It is populated at process start and is safe for concurrent use.
type Catalog struct {
	entries map[string]*registration
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string]*registration),
		log:     logger.Get("di"),
	}
}

// Register adds implementation prototypes. Each prototype is a typed nil (or
// non-nil) pointer to a named struct, e.g. (*UserDao)(nil).
func (c *Catalog) Register(prototypes ...any) error {
	for _, p := range prototypes {
		t := reflect.TypeOf(p)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
			return errors.NoValidImplementationType(fmt.Sprintf("%T", p), "prototype must be a pointer to a struct")
		}
		key, err := ImplementationKey(t)
		if err != nil {
			return err
		}
		c.put(&registration{key: key, typ: t, mode: Prototype})
	}
	return nil
}

// Provide registers a constructor under key. The constructor has the shape
// func() T or func() (T, error). An empty key is derived from T with
// ImplementationKey, so a constructor returning IUserDao serves that interface.
func (c *Catalog) Provide(key string, constructor any) error {
	fn := reflect.ValueOf(constructor)
	if fn.Kind() != reflect.Func {
		return errors.NoValidImplementationType(fmt.Sprintf("%T", constructor), "constructor must be a function")
	}
	ft := fn.Type()
	if ft.NumIn() != 0 {
		return errors.NoValidImplementationType(ft.String(), "constructor must not take arguments")
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return errors.NoValidImplementationType(ft.String(), "constructor must return either (instance) or (instance, error)")
	}
	if key == "" {
		derived, err := ImplementationKey(ft.Out(0))
		if err != nil {
			return err
		}
		key = derived
	}
	c.put(&registration{key: key, typ: ft.Out(0), mode: Constructor, constructor: fn})
	return nil
}

func (c *Catalog) put(r *registration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if prev, exists := c.entries[r.key]; exists {
		c.log.Debug("Catalog entry replaced", map[string]interface{}{
			"key":      r.key,
			"previous": prev.typ.String(),
			"type":     r.typ.String(),
		})
	}
	c.entries[r.key] = r
}

func (c *Catalog) lookup(key string) (*registration, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// Implementation returns the type that New would build for t, without
// building it. For constructor entries this is the declared result type.
func (c *Catalog) Implementation(t reflect.Type) (reflect.Type, error) {
	key, err := ImplementationKey(t)
	if err != nil {
		return nil, err
	}
	r, ok := c.lookup(key)
	if !ok {
		if t.Kind() == reflect.Pointer {
			return t, nil
		}
		return nil, errors.NoValidImplementationType(QualifiedName(t), fmt.Sprintf("no implementation registered under %s", key))
	}
	if r.mode == Prototype && !r.typ.AssignableTo(t) {
		return nil, errors.NoValidImplementationType(QualifiedName(t), fmt.Sprintf("%s does not implement it", r.typ))
	}
	return r.typ, nil
}

// New builds a fresh instance for t. Slots of the instance are not injected.
func (c *Catalog) New(t reflect.Type) (any, error) {
	key, err := ImplementationKey(t)
	if err != nil {
		return nil, err
	}
	r, ok := c.lookup(key)
	if !ok {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface(), nil
		}
		return nil, errors.NoValidImplementationType(QualifiedName(t), fmt.Sprintf("no implementation registered under %s", key))
	}

	if r.mode == Prototype {
		if !r.typ.AssignableTo(t) {
			return nil, errors.NoValidImplementationType(QualifiedName(t), fmt.Sprintf("%s does not implement it", r.typ))
		}
		return reflect.New(r.typ.Elem()).Interface(), nil
	}

	instance, err := callConstructor(r.constructor)
	if err != nil {
		return nil, errors.InjectionFailure(QualifiedName(t), "", "constructor failed").WithCause(err)
	}
	if instance == nil {
		return nil, errors.NoValidImplementationType(QualifiedName(t), "constructor returned nil")
	}
	if !reflect.TypeOf(instance).AssignableTo(t) {
		return nil, errors.NoValidImplementationType(QualifiedName(t), fmt.Sprintf("%T does not implement it", instance))
	}
	return instance, nil
}

// Registrations returns info about all entries, sorted by key.
func (c *Catalog) Registrations() []RegistrationInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.entries))
	for key, r := range c.entries {
		result = append(result, RegistrationInfo{Key: key, Type: r.typ.String(), Mode: r.mode})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func callConstructor(fn reflect.Value) (any, error) {
	return handleConstructorResults(fn.Call(nil))
}

func handleConstructorResults(results []reflect.Value) (any, error) {
	switch len(results) {
	case 1:
		return valueOrNil(results[0]), nil
	case 2:
		if err, _ := results[1].Interface().(error); err != nil {
			return nil, err
		}
		return valueOrNil(results[0]), nil
	default:
		return nil, fmt.Errorf("constructor must return either (instance) or (instance, error)")
	}
}

func valueOrNil(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

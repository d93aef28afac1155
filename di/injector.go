package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/txn"
)

// ErrInstanceRegistered is the cause of the Adopt error raised when the run
// already holds an instance of the same implementation type.
var ErrInstanceRegistered = stderrors.New("an instance of this type is already registered for the run")

// Resources opens managed resources by name. *txn.Set implements it.
type Resources interface {
	Resource(ctx context.Context, name string) (txn.Resource, error)
}

// Injector populates the slots of a component graph for one run. It owns the
// run's InstanceRegistry, PathRegistry and ContextStore and is not safe for
// concurrent use.
type Injector struct {
	catalog     *Catalog
	resources   Resources
	interceptor *txn.Interceptor
	overrides   map[reflect.Type]any
	instances   *InstanceRegistry
	paths       *PathRegistry
	store       *ContextStore
	log         *logger.Logger

	// implementation keys of the components being walked
	stack []string
}

// InjectorOption configures an Injector.
type InjectorOption func(*Injector)

// WithInterceptor hands a boundary from i to every txn.BoundaryAware component.
func WithInterceptor(i *txn.Interceptor) InjectorOption {
	return func(in *Injector) { in.interceptor = i }
}

// WithOverrides substitutes instances for singleton and nested slots of the
// given types, bypassing the catalog.
func WithOverrides(overrides map[reflect.Type]any) InjectorOption {
	return func(in *Injector) {
		for t, v := range overrides {
			in.overrides[t] = v
		}
	}
}

// WithInjectorLogger sets the logger used for slot diagnostics.
func WithInjectorLogger(l *logger.Logger) InjectorOption {
	return func(in *Injector) { in.log = l }
}

// NewInjector creates an injector resolving implementations from catalog and
// resource slots from resources.
func NewInjector(catalog *Catalog, resources Resources, opts ...InjectorOption) *Injector {
	in := &Injector{
		catalog:   catalog,
		resources: resources,
		overrides: make(map[reflect.Type]any),
		instances: NewInstanceRegistry(),
		paths:     NewPathRegistry(),
		store:     NewContextStore(),
		log:       logger.Get("di"),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Instances returns the run's singleton registry.
func (in *Injector) Instances() *InstanceRegistry { return in.instances }

// Paths returns the run's nested path registry.
func (in *Injector) Paths() *PathRegistry { return in.paths }

// Store returns the run's ContextStore.
func (in *Injector) Store() *ContextStore { return in.store }

// Adopt registers root as the run-wide instance of its implementation type
// without walking it, so singleton slots of that type receive root.
func (in *Injector) Adopt(root any) error {
	key, err := ImplementationKey(reflect.TypeOf(root))
	if err != nil {
		return err
	}
	if !in.instances.Put(key, root) {
		return errors.InjectionFailure(key, "", ErrInstanceRegistered.Error()).WithCause(ErrInstanceRegistered)
	}
	return nil
}

// Inject populates every slot reachable from root, a non-nil pointer to a
// struct. The root's path is its qualified type name.
func (in *Injector) Inject(ctx context.Context, root any) error {
	v := reflect.ValueOf(root)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return errors.InjectionFailure(fmt.Sprintf("%T", root), "", "component must be a non-nil pointer to a struct")
	}
	key, err := ImplementationKey(v.Type())
	if err != nil {
		return err
	}
	return in.walk(ctx, v, QualifiedName(v.Type()), key)
}

func (in *Injector) walk(ctx context.Context, v reflect.Value, path, key string) error {
	if err := in.bindBoundary(ctx, v.Interface()); err != nil {
		return err
	}
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil
	}

	desc, err := Describe(v.Type())
	if err != nil {
		return err
	}

	in.stack = append(in.stack, key)
	defer func() { in.stack = in.stack[:len(in.stack)-1] }()

	elem := v.Elem()
	resourceName := txn.NameOf(v.Interface())
	for _, slot := range desc.Slots {
		field := elem.FieldByIndex(slot.Index)
		if !field.CanSet() {
			return errors.InjectionFailure(QualifiedName(slot.Owner), slot.Name, "slot is not settable")
		}
		if !field.IsZero() {
			in.log.Debug("Slot pre-seeded, skipping", map[string]interface{}{
				logger.FieldPath: path,
				logger.FieldSlot: slot.Name,
			})
			continue
		}

		switch slot.Kind {
		case SlotResource:
			err = in.injectResource(ctx, field, slot, resourceName)
		case SlotContext:
			field.Set(reflect.ValueOf(in.store))
		case SlotSingleton:
			err = in.injectSingleton(ctx, field, slot)
		case SlotNested:
			err = in.injectNested(ctx, field, slot, path+"."+slot.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *Injector) injectResource(ctx context.Context, field reflect.Value, slot Slot, componentResource string) error {
	if in.resources == nil {
		return errors.InjectionFailure(QualifiedName(slot.Owner), slot.Name, "no resources are available to the injector")
	}
	name := slot.Resource
	if name == "" {
		name = componentResource
	}
	res, err := in.resources.Resource(ctx, name)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(res)
	if !rv.Type().AssignableTo(slot.Type) {
		return errors.InjectionFailure(QualifiedName(slot.Owner), slot.Name,
			fmt.Sprintf("resource %s of type %s is not assignable to %s", res.Name(), rv.Type(), slot.Type))
	}
	field.Set(rv)
	return nil
}

func (in *Injector) injectSingleton(ctx context.Context, field reflect.Value, slot Slot) error {
	if applied, err := in.applyOverride(field, slot); applied || err != nil {
		return err
	}
	key, err := in.resolvedKey(slot.Type)
	if err != nil {
		return err
	}
	instance, created, err := in.instances.GetOrCreate(key, func() (any, error) {
		return in.catalog.New(slot.Type)
	})
	if err != nil {
		return err
	}
	if err := assign(field, slot, instance); err != nil {
		return err
	}
	if !created {
		return nil
	}
	if concrete, err := ImplementationKey(reflect.TypeOf(instance)); err == nil {
		key = concrete
	}
	in.log.Debug("Singleton created", map[string]interface{}{
		logger.FieldSlot:      slot.Name,
		logger.FieldComponent: key,
	})
	return in.walk(ctx, reflect.ValueOf(instance), key, key)
}

func (in *Injector) injectNested(ctx context.Context, field reflect.Value, slot Slot, path string) error {
	if applied, err := in.applyOverride(field, slot); applied || err != nil {
		return err
	}
	key, err := in.resolvedKey(slot.Type)
	if err != nil {
		return err
	}
	for _, active := range in.stack {
		if active == key {
			return errors.CircularComposition(path, key)
		}
	}
	if prev, taken := in.paths.Lookup(path); taken {
		return errors.CircularComposition(path, key).WithDetail("registered", prev)
	}
	in.paths.RegisterOnce(path, key)
	instance, err := in.catalog.New(slot.Type)
	if err != nil {
		return err
	}
	if err := assign(field, slot, instance); err != nil {
		return err
	}
	in.log.Debug("Nested instance created", map[string]interface{}{
		logger.FieldPath:      path,
		logger.FieldComponent: key,
	})
	return in.walk(ctx, reflect.ValueOf(instance), path, key)
}

// resolvedKey returns the implementation key a slot of type t resolves to in
// the catalog. Constructors declared with an interface result keep the
// interface's derived key.
func (in *Injector) resolvedKey(t reflect.Type) (string, error) {
	impl, err := in.catalog.Implementation(t)
	if err != nil {
		return "", err
	}
	if impl.Kind() == reflect.Pointer && impl.Elem().Kind() == reflect.Struct {
		return ImplementationKey(impl)
	}
	return ImplementationKey(t)
}

func (in *Injector) applyOverride(field reflect.Value, slot Slot) (bool, error) {
	v, ok := in.overrides[slot.Type]
	if !ok || v == nil {
		return false, nil
	}
	return true, assign(field, slot, v)
}

func (in *Injector) bindBoundary(ctx context.Context, component any) error {
	aware, ok := component.(txn.BoundaryAware)
	if !ok || in.interceptor == nil || in.resources == nil {
		return nil
	}
	res, err := in.resources.Resource(ctx, txn.NameOf(component))
	if err != nil {
		return err
	}
	aware.UseBoundary(in.interceptor.Bind(res))
	return nil
}

func assign(field reflect.Value, slot Slot, instance any) error {
	rv := reflect.ValueOf(instance)
	if !rv.IsValid() || !rv.Type().AssignableTo(slot.Type) {
		return errors.InjectionFailure(QualifiedName(slot.Owner), slot.Name,
			fmt.Sprintf("%T is not assignable to %s", instance, slot.Type))
	}
	field.Set(rv)
	return nil
}

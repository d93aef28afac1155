package fixture

import "reflect"

// Metadata declares what one test needs.
type Metadata struct {
	// Name labels the run in logs and spans. fixture.Run uses the test name.
	Name string
	// Generators are the top-level generator types, in declaration order.
	// Each is a pointer-to-struct type or an interface resolvable by the
	// environment's catalog.
	Generators []reflect.Type
	// Finders are read-side helpers built and injected alongside the
	// generators. They share the run's singletons but take no part in
	// generation or cleanup.
	Finders []reflect.Type
	// SkipCleanup leaves generated data in place.
	SkipCleanup bool
	// Overrides replace catalog resolution for singleton and nested slots
	// of the given types, typically with mocks.
	Overrides map[reflect.Type]any
}

// TypeOf returns the reflect.Type of T, for Metadata.Generators and
// Metadata.Finders.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

func (m Metadata) runName() string {
	if m.Name == "" {
		return "fixture"
	}
	return m.Name
}

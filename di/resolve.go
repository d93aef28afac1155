package di

import (
	"fmt"
	"reflect"
)

// Resolve builds a fresh T from the catalog. Slots of the result are not
// injected.
//
// Example:
//
//	dao, err := di.Resolve[IUserDao](catalog)
//	if err != nil {
//	    return fmt.Errorf("failed to build user dao: %w", err)
//	}
func Resolve[T any](c *Catalog) (T, error) {
	var zero T
	instance, err := c.New(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: catalog built %T, expected %T", instance, zero)
	}
	return result, nil
}

// MustResolve is Resolve that panics on error.
func MustResolve[T any](c *Catalog) T {
	result, err := Resolve[T](c)
	if err != nil {
		panic(fmt.Sprintf("di: failed to resolve %s: %v", reflect.TypeFor[T](), err))
	}
	return result
}

// TryResolve is Resolve that reports failure as false.
func TryResolve[T any](c *Catalog) (T, bool) {
	result, err := Resolve[T](c)
	if err != nil {
		var zero T
		return zero, false
	}
	return result, true
}

// Provide registers a typed constructor under the key derived from T.
//
// Example:
//
//	di.Provide[IUserDao](catalog, func() (IUserDao, error) { return newUserDao(), nil })
func Provide[T any](c *Catalog, constructor func() (T, error)) error {
	return c.Provide("", constructor)
}

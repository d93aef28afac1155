package di

import (
	"reflect"

	"github.com/kbukum/fixturekit/errors"
)

// ImplementationKey derives the catalog key for t.
//
// A pointer to a named struct maps to "pkgpath.Name". A named interface maps
// to "pkgpath." followed by its name without the first character, so
// IUserDao in package repo resolves to the key of *repo.UserDao.
func ImplementationKey(t reflect.Type) (string, error) {
	if t == nil {
		return "", errors.NoValidImplementationType("<nil>", "type is nil")
	}
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		elem := t.Elem()
		if elem.Name() == "" {
			return "", errors.NoValidImplementationType(t.String(), "struct type is unnamed")
		}
		return elem.PkgPath() + "." + elem.Name(), nil
	case t.Kind() == reflect.Interface:
		name := t.Name()
		if name == "" {
			return "", errors.NoValidImplementationType(t.String(), "interface type is unnamed")
		}
		runes := []rune(name)
		if len(runes) < 2 {
			return "", errors.NoValidImplementationType(t.String(), "interface name is too short to derive an implementation name")
		}
		return t.PkgPath() + "." + string(runes[1:]), nil
	default:
		return "", errors.NoValidImplementationType(t.String(), "type is neither an interface nor a pointer to a struct")
	}
}

// QualifiedName returns "pkgpath.Name" for named types, dereferencing one
// pointer level, and t.String() otherwise.
func QualifiedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

package di

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/kbukum/fixturekit/errors"
)

// TagName is the struct tag that marks a field as a slot.
const TagName = "fixture"

// SlotKind is the role of a slot.
type SlotKind int

const (
	// SlotResource receives a managed resource.
	SlotResource SlotKind = iota + 1
	// SlotSingleton receives the run-wide instance of its implementation type.
	SlotSingleton
	// SlotNested receives a fresh instance owned by the declaring component.
	SlotNested
	// SlotContext receives the run's ContextStore.
	SlotContext
)

var slotKinds = map[string]SlotKind{
	"resource":  SlotResource,
	"singleton": SlotSingleton,
	"nested":    SlotNested,
	"context":   SlotContext,
}

func (k SlotKind) String() string {
	for name, kind := range slotKinds {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("SlotKind(%d)", int(k))
}

var contextStoreType = reflect.TypeOf((*ContextStore)(nil))

// Slot is one injectable field.
type Slot struct {
	// Name is the field name.
	Name string
	// Owner is the struct type that declares the field.
	Owner reflect.Type
	Kind  SlotKind
	Type  reflect.Type
	// Index locates the field from the described type, through ancestors.
	Index []int
	// Resource is the name= option of a resource slot.
	Resource string
}

// TypeDescriptor is the flattened slot list of a struct type.
type TypeDescriptor struct {
	Type reflect.Type
	// Ancestors are the embedded struct types, most-base first.
	Ancestors []reflect.Type
	// Slots lists ancestor slots before the type's own, most-base first.
	Slots []Slot
}

var arena = struct {
	sync.RWMutex
	byType map[reflect.Type]*TypeDescriptor
}{byType: make(map[reflect.Type]*TypeDescriptor)}

// Describe returns the cached descriptor of t, a struct or pointer to struct.
func Describe(t reflect.Type) (*TypeDescriptor, error) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.InjectionFailure(QualifiedName(t), "", "component must be a pointer to a struct")
	}

	arena.RLock()
	d, ok := arena.byType[t]
	arena.RUnlock()
	if ok {
		return d, nil
	}

	d = &TypeDescriptor{Type: t}
	if err := d.collect(t, nil); err != nil {
		return nil, err
	}

	arena.Lock()
	defer arena.Unlock()
	if cached, ok := arena.byType[t]; ok {
		return cached, nil
	}
	arena.byType[t] = d
	return d, nil
}

func (d *TypeDescriptor) collect(t reflect.Type, index []int) error {
	// Ancestors first so their slots precede ours.
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if _, tagged := f.Tag.Lookup(TagName); tagged {
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if err := d.collect(f.Type, appendIndex(index, i)); err != nil {
				return err
			}
			d.Ancestors = append(d.Ancestors, f.Type)
		}
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, tagged := f.Tag.Lookup(TagName)
		if !tagged {
			continue
		}
		slot, err := parseSlot(t, f, tag)
		if err != nil {
			return err
		}
		slot.Index = appendIndex(index, i)
		d.Slots = append(d.Slots, slot)
	}
	return nil
}

func appendIndex(index []int, i int) []int {
	out := make([]int, len(index), len(index)+1)
	copy(out, index)
	return append(out, i)
}

func parseSlot(owner reflect.Type, f reflect.StructField, tag string) (Slot, error) {
	fail := func(format string, args ...any) error {
		return errors.InjectionFailure(QualifiedName(owner), f.Name, fmt.Sprintf(format, args...))
	}

	parts := strings.Split(tag, ",")
	kind, ok := slotKinds[strings.TrimSpace(parts[0])]
	if !ok {
		return Slot{}, fail("unknown slot kind %q", parts[0])
	}
	if !f.IsExported() {
		return Slot{}, fail("slot field must be exported")
	}

	slot := Slot{Name: f.Name, Owner: owner, Kind: kind, Type: f.Type}
	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch {
		case key == "name" && kind == SlotResource:
			slot.Resource = value
		case key == "name":
			return Slot{}, fail("name= is only valid on resource slots")
		default:
			return Slot{}, fail("unknown slot option %q", opt)
		}
	}

	switch kind {
	case SlotResource:
		if f.Type.Kind() != reflect.Interface && f.Type.Kind() != reflect.Pointer {
			return Slot{}, fail("resource slot must be an interface or a pointer, got %s", f.Type)
		}
	case SlotSingleton, SlotNested:
		isStructPtr := f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct
		if f.Type.Kind() != reflect.Interface && !isStructPtr {
			return Slot{}, fail("%s slot must be an interface or a pointer to a struct, got %s", kind, f.Type)
		}
	case SlotContext:
		if f.Type != contextStoreType {
			return Slot{}, fail("context slot must be %s, got %s", contextStoreType, f.Type)
		}
	}
	return slot, nil
}

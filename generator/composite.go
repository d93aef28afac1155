package generator

import (
	"context"
	"fmt"

	"github.com/kbukum/fixturekit/errors"
)

// Composite is embedded by generators that drive sub-generators. Links
// registered with Register or DependsOn run in insertion order before the
// composite's own Generate.
//
//	type OrderGenerator struct {
//	    generator.Composite
//	    Users *UserGenerator `fixture:"nested"`
//	}
//
//	func (g *OrderGenerator) Setup(ctx context.Context) error {
//	    return g.DependsOn("users", g.Users)
//	}
type Composite struct {
	owner string
	links []link
	names map[string]int
}

type link struct {
	name      string
	component any
}

func (l link) label() string {
	if l.name != "" {
		return l.name
	}
	return fmt.Sprintf("%T", l.component)
}

type compositeHolder interface {
	composite() *Composite
}

func (c *Composite) composite() *Composite { return c }

func (c *Composite) ownerName() string {
	if c.owner == "" {
		return "composite"
	}
	return c.owner
}

// Generate does nothing. Composites with their own data override it.
func (c *Composite) Generate(context.Context) error { return nil }

// Cleanup is a no-op.
func (c *Composite) Cleanup(context.Context) error { return nil }

// Register appends an unnamed link.
func (c *Composite) Register(component any) error {
	return c.add("", component)
}

// DependsOn appends a link that can be looked up by name.
func (c *Composite) DependsOn(name string, component any) error {
	if name == "" {
		return errors.MissingDependencyName(c.ownerName())
	}
	if _, exists := c.names[name]; exists {
		return errors.DuplicateDependencyName(c.ownerName(), name)
	}
	return c.add(name, component)
}

func (c *Composite) add(name string, component any) error {
	if h, ok := component.(compositeHolder); ok && h.composite() == c {
		return errors.SelfDependency(c.ownerName(), name)
	}
	if !Valid(component) {
		return errors.InjectionFailure(c.ownerName(), name,
			fmt.Sprintf("%T is neither a Generator nor a BeforeAfter", component))
	}
	if name != "" {
		if c.names == nil {
			c.names = make(map[string]int)
		}
		c.names[name] = len(c.links)
	}
	c.links = append(c.links, link{name: name, component: component})
	return nil
}

// Dependency returns the link registered under name.
func (c *Composite) Dependency(name string) (any, bool) {
	i, ok := c.names[name]
	if !ok {
		return nil, false
	}
	return c.links[i].component, true
}

// Links returns the registered components in execution order.
func (c *Composite) Links() []any {
	out := make([]any, len(c.links))
	for i, l := range c.links {
		out[i] = l.component
	}
	return out
}

// Reset drops every link.
func (c *Composite) Reset() {
	c.links = nil
	c.names = nil
}

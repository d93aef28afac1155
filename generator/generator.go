// Package generator defines the contracts fixture generators implement and
// the composite chain that fixes execution order inside a composite.
package generator

import (
	"context"
	"fmt"
)

// Generator creates fixture data and removes it again.
type Generator interface {
	Generate(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// BeforeAfter is the hook-style variant of Generator.
type BeforeAfter interface {
	Before(ctx context.Context) error
	After(ctx context.Context) error
}

// Setup is implemented by composites that register their chain links.
// It runs at the start of every generate pass.
type Setup interface {
	Setup(ctx context.Context) error
}

// Valid reports whether v implements Generator or BeforeAfter.
func Valid(v any) bool {
	switch v.(type) {
	case BeforeAfter, Generator:
		return true
	}
	return false
}

// generate runs the generate side of v. BeforeAfter wins when v implements both.
func generate(ctx context.Context, v any) error {
	switch g := v.(type) {
	case BeforeAfter:
		return g.Before(ctx)
	case Generator:
		return g.Generate(ctx)
	}
	return fmt.Errorf("%T is neither a Generator nor a BeforeAfter", v)
}

func cleanup(ctx context.Context, v any) error {
	switch g := v.(type) {
	case BeforeAfter:
		return g.After(ctx)
	case Generator:
		return g.Cleanup(ctx)
	}
	return fmt.Errorf("%T is neither a Generator nor a BeforeAfter", v)
}

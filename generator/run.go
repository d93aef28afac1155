package generator

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
)

const (
	phaseGenerate = "generate"
	phaseCleanup  = "cleanup"
)

// Run executes the generate side of g. For a composite it resets the chain,
// calls Setup when implemented, runs every link in order and then g itself.
// It stops at the first failure.
func Run(ctx context.Context, g any) error {
	h, ok := g.(compositeHolder)
	if !ok {
		return generate(ctx, g)
	}

	c := h.composite()
	c.Reset()
	c.owner = fmt.Sprintf("%T", g)
	if s, ok := g.(Setup); ok {
		if err := s.Setup(ctx); err != nil {
			return err
		}
	}

	log := logger.Get("generator")
	for i, l := range c.links {
		log.Debug("Running chain link", map[string]interface{}{
			logger.FieldGenerator: c.owner,
			logger.FieldComponent: l.label(),
			logger.FieldCount:     i + 1,
		})
		if err := Run(ctx, l.component); err != nil {
			return wrapLink(phaseGenerate, l, err)
		}
	}
	return generate(ctx, g)
}

// Clean executes the cleanup side of g. For a composite it cleans g itself
// first and then every link in reverse order, attempting all of them and
// joining their errors.
func Clean(ctx context.Context, g any) error {
	h, ok := g.(compositeHolder)
	if !ok {
		return cleanup(ctx, g)
	}

	c := h.composite()
	var errs []error
	if err := cleanup(ctx, g); err != nil {
		errs = append(errs, err)
	}
	for i := len(c.links) - 1; i >= 0; i-- {
		if err := Clean(ctx, c.links[i].component); err != nil {
			errs = append(errs, wrapLink(phaseCleanup, c.links[i], err))
		}
	}
	return stderrors.Join(errs...)
}

func wrapLink(phase string, l link, err error) error {
	if errors.HasCode(err, errors.ErrCodeLifecyclePhaseFailure) {
		return err
	}
	return errors.LifecyclePhaseFailure(phase, l.label(), err)
}

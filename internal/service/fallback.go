package service

import (
	"context"
	"errors"
	"fmt"
)

// resolveStep is one strategy in an ordered fallback chain.
// The name appears in the combined error when every step fails.
type resolveStep[T any] struct {
	name string
	run  func(context.Context) (T, error)
}

// firstSuccess runs the steps in order and returns the first result that
// resolves without error. When all steps fail, the errors are joined so the
// caller can log the whole chain at once.
func firstSuccess[T any](ctx context.Context, steps []resolveStep[T]) (T, error) {
	var (
		zero T
		errs []error
	)
	for _, step := range steps {
		result, err := step.run(ctx)
		if err == nil {
			return result, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
	}
	return zero, errors.Join(errs...)
}

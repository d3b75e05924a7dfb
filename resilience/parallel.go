package resilience

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallel runs every fn concurrently and waits for all of them.
//
// When continueOnError is false, it fails fast: ctx is cancelled for
// the remaining fns as soon as one returns an error, and that first
// error is returned with a nil result slice.
//
// When continueOnError is true, every fn runs to completion regardless
// of the others' outcomes, and Parallel always returns a nil error
// alongside a per-function result slice (in input order) recording
// each fn's own error, if any.
func Parallel(ctx context.Context, continueOnError bool, fns ...func(ctx context.Context) error) ([]error, error) {
	if !continueOnError {
		g, gctx := errgroup.WithContext(ctx)
		for _, fn := range fns {
			fn := fn
			g.Go(func() error { return fn(gctx) })
		}
		return nil, g.Wait()
	}

	results := make([]error, len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		i, fn := i, fn
		go func() {
			defer wg.Done()
			results[i] = fn(ctx)
		}()
	}
	wg.Wait()
	return results, nil
}

// Race runs every fn concurrently and returns as soon as the first one
// finishes (success or error), cancelling the rest.
func Race(ctx context.Context, fns ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(fns))
	for _, fn := range fns {
		fn := fn
		go func() {
			results <- fn(ctx)
		}()
	}

	select {
	case err := <-results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package workerpool bounds fan-out over independent units of work (chunk
// extraction, community summarization, embedding calls) so the core never
// opens more than N concurrent provider/DB calls at once.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is used whenever a caller passes n<=0.
const DefaultParallelism = 8

// Run executes fn(item) for every item in items, with at most n goroutines
// in flight at a time. It returns the first non-nil error encountered;
// other in-flight work is allowed to finish (errgroup does not cancel
// siblings unless fn itself observes ctx.Err()).
func Run[T any](ctx context.Context, n int, items []T, fn func(context.Context, T) error) error {
	if n <= 0 {
		n = DefaultParallelism
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	return g.Wait()
}

// Map runs fn(item) for every item in items with bounded concurrency and
// collects results in the same order as items. If any call fails, Map
// returns the first error; results for items that never ran are the zero
// value of R.
func Map[T, R any](ctx context.Context, n int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if n <= 0 {
		n = DefaultParallelism
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

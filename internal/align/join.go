package align

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Join runs two independent tasks concurrently and waits for both. The tasks
// must not share mutable state. If either fails, the context passed to the
// other is cancelled and the first error is returned.
func Join[A, B any](ctx context.Context, fa func(context.Context) (A, error), fb func(context.Context) (B, error)) (A, B, error) {
	var (
		a A
		b B
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = fa(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = fb(gctx)
		return err
	})
	err := g.Wait()
	return a, b, err
}

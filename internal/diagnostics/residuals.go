package diagnostics

import (
	"context"
	"fmt"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"golang.org/x/sync/errgroup"
)

// LeaveOneOut returns, for each plane i, the coordinate extrapolated to
// depths[i] from the line through the other two planes, minus the measured
// coordinate. Depths must be distinct.
func LeaveOneOut(u [gem.NumPlanes]float64, depths gem.Depths) [gem.NumPlanes]float64 {
	var out [gem.NumPlanes]float64
	for i := 0; i < gem.NumPlanes; i++ {
		j := (i + 1) % gem.NumPlanes
		k := (i + 2) % gem.NumPlanes
		slope := (u[j] - u[k]) / (depths[j] - depths[k])
		intercept := u[j] - depths[j]*slope
		out[i] = slope*depths[i] + intercept - u[i]
	}
	return out
}

// Residuals computes leave-one-out residuals on both axes for every event of
// set. Events are split into contiguous chunks over at most workers
// goroutines; each chunk writes only its own slots. Output follows set order.
func Residuals(ctx context.Context, set *gem.EventSet, depths gem.Depths, workers int) ([]gem.ResidualRecord, error) {
	if err := depths.Validate(); err != nil {
		return nil, fmt.Errorf("residuals: %w", err)
	}
	n := set.Len()
	out := make([]gem.ResidualRecord, n)
	if n == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				id, tr := set.At(i)
				var xs, ys [gem.NumPlanes]float64
				for p := range tr {
					xs[p] = tr[p].X
					ys[p] = tr[p].Y
				}
				out[i] = gem.ResidualRecord{
					Event: id,
					X:     LeaveOneOut(xs, depths),
					Y:     LeaveOneOut(ys, depths),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

package align

import (
	"context"
	"fmt"

	"github.com/samstevens127/MOLLER-tracking/internal/fit"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// Alignment joins the x and y results of one run.
type Alignment struct {
	X Result
	Y Result
}

// Shift returns the correction applied to the target plane.
func (a Alignment) Shift() gem.ShiftVector {
	return gem.ShiftVector{DX: a.X.Shift, DY: a.Y.Shift}
}

// Converged reports whether both axes met the tolerance.
func (a Alignment) Converged() bool { return a.X.Converged && a.Y.Converged }

// AlignPlanes aligns the target plane of set along x and y concurrently.
// Each axis descends on its own projection of the set; the corrected target
// coordinates are written back only after both tasks finish successfully.
func AlignPlanes(ctx context.Context, set *gem.EventSet, opt *Optimizer) (Alignment, error) {
	if set.Len() == 0 {
		return Alignment{}, fmt.Errorf("align: %w", fit.ErrNoEvents)
	}
	xs := set.Project(gem.AxisX)
	ys := set.Project(gem.AxisY)

	rx, ry, err := Join(ctx,
		func(ctx context.Context) (Result, error) { return opt.Run(ctx, gem.AxisX, xs) },
		func(ctx context.Context) (Result, error) { return opt.Run(ctx, gem.AxisY, ys) },
	)
	if err != nil {
		return Alignment{}, fmt.Errorf("align: %w", err)
	}

	target := opt.Params().Target
	if err := set.ApplyPlane(gem.AxisX, target, xs); err != nil {
		return Alignment{}, err
	}
	if err := set.ApplyPlane(gem.AxisY, target, ys); err != nil {
		return Alignment{}, err
	}
	return Alignment{X: rx, Y: ry}, nil
}

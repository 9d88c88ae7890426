package fit

import (
	"errors"
	"fmt"
	"math"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"gonum.org/v1/gonum/mat"
)

// DefaultSVDFloor is the singular value below which a direction is treated
// as null in the least-squares solve.
const DefaultSVDFloor = 1e-10

var (
	// ErrNonFinite reports a NaN or infinite coordinate or depth.
	ErrNonFinite = errors.New("non-finite input")
	// ErrDegenerate reports a solve that produced no finite solution.
	ErrDegenerate = errors.New("degenerate fit")
	// ErrNoEvents reports an aggregation over an empty event set.
	ErrNoEvents = errors.New("no events")
)

// Line is the affine map z = Slope·u + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

// Predict returns the fitted depth at transverse coordinate u.
func (l Line) Predict(u float64) float64 { return l.Slope*u + l.Intercept }

// Residual returns Σ (z_i − Predict(u_i))² over the three planes.
func (l Line) Residual(u [gem.NumPlanes]float64, depths gem.Depths) float64 {
	var sum float64
	for i := range u {
		d := depths[i] - l.Predict(u[i])
		sum += d * d
	}
	return sum
}

// FitLine solves the least-squares line through three samples of one
// transverse coordinate. Singular values at or below floor are dropped,
// giving the minimum-norm solution for near-singular design matrices.
func FitLine(u [gem.NumPlanes]float64, depths gem.Depths, floor float64) (Line, error) {
	for i := range u {
		if !finite(u[i]) || !finite(depths[i]) {
			return Line{}, fmt.Errorf("plane %d: u=%v z=%v: %w", i, u[i], depths[i], ErrNonFinite)
		}
	}

	design := mat.NewDense(gem.NumPlanes, 2, []float64{
		u[0], 1,
		u[1], 1,
		u[2], 1,
	})
	z := mat.NewVecDense(gem.NumPlanes, []float64{depths[0], depths[1], depths[2]})

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return Line{}, fmt.Errorf("svd factorization failed: %w", ErrDegenerate)
	}

	rank := 0
	for _, s := range svd.Values(nil) {
		if s > floor {
			rank++
		}
	}
	if rank == 0 {
		return Line{}, fmt.Errorf("all singular values below %g: %w", floor, ErrDegenerate)
	}

	var sol mat.VecDense
	svd.SolveVecTo(&sol, z, rank)

	line := Line{Slope: sol.AtVec(0), Intercept: sol.AtVec(1)}
	if !finite(line.Slope) || !finite(line.Intercept) {
		return Line{}, fmt.Errorf("slope=%v intercept=%v: %w", line.Slope, line.Intercept, ErrDegenerate)
	}
	return line, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

package align

import (
	"context"
	"fmt"
	"math"

	"github.com/samstevens127/MOLLER-tracking/internal/fit"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// Params are the tunable constants of the descent.
type Params struct {
	Target        gem.Plane // Plane whose coordinate is corrected
	LearningRate  float64   // Fixed step multiplier
	Tolerance     float64   // Converged when |gradient| <= Tolerance
	MaxIterations int       // Hard cap on descent steps
	Epsilon       float64   // Finite-difference half step (mm)
	SVDFloor      float64   // Singular value floor of the line fit
	ProgressEvery int       // Observer period in iterations; 0 disables
}

// DefaultParams returns the reference constants.
func DefaultParams() Params {
	return Params{
		Target:        gem.Plane1,
		LearningRate:  5e-5,
		Tolerance:     1e-3,
		MaxIterations: 4000,
		Epsilon:       1e-6,
		SVDFloor:      fit.DefaultSVDFloor,
		ProgressEvery: 10,
	}
}

// Validate checks that the parameters describe a runnable descent.
func (p Params) Validate() error {
	if !p.Target.Valid() {
		return fmt.Errorf("target plane must be 0, 1 or 2, got %d", p.Target)
	}
	if !(p.LearningRate > 0) || math.IsInf(p.LearningRate, 0) {
		return fmt.Errorf("learning rate must be positive and finite, got %v", p.LearningRate)
	}
	if !(p.Tolerance >= 0) || math.IsInf(p.Tolerance, 0) {
		return fmt.Errorf("tolerance must be non-negative and finite, got %v", p.Tolerance)
	}
	if p.MaxIterations < 0 {
		return fmt.Errorf("max iterations must be non-negative, got %d", p.MaxIterations)
	}
	if !(p.Epsilon > 0) || math.IsInf(p.Epsilon, 0) {
		return fmt.Errorf("epsilon must be positive and finite, got %v", p.Epsilon)
	}
	if !(p.SVDFloor >= 0) {
		return fmt.Errorf("svd floor must be non-negative, got %v", p.SVDFloor)
	}
	if p.ProgressEvery < 0 {
		return fmt.Errorf("progress period must be non-negative, got %d", p.ProgressEvery)
	}
	return nil
}

// Result is the terminal state of one axis.
type Result struct {
	Axis       gem.Axis
	Shift      float64 // Accumulated correction applied to the target plane
	Iterations int     // Descent steps applied; never exceeds MaxIterations
	Converged  bool    // False when the run stopped at MaxIterations
	Gradient   float64 // Last gradient evaluated
	Cost       float64 // Chi-square at the returned coordinates
}

// Status is "converged" or "capped".
func (r Result) Status() string {
	if r.Converged {
		return "converged"
	}
	return "capped"
}

// Optimizer runs the descent for one axis at a time. It holds no per-run
// state and may be shared by concurrent Run calls on disjoint samples.
type Optimizer struct {
	depths   gem.Depths
	params   Params
	observer Observer
}

// NewOptimizer validates its inputs. observer may be nil.
func NewOptimizer(depths gem.Depths, params Params, observer Observer) (*Optimizer, error) {
	if err := depths.Validate(); err != nil {
		return nil, fmt.Errorf("invalid depths: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{depths: depths, params: params, observer: observer}, nil
}

// Params returns the optimizer constants.
func (o *Optimizer) Params() Params { return o.params }

// Depths returns the plane depths.
func (o *Optimizer) Depths() gem.Depths { return o.depths }

// Run descends on the target column of samples in place. Reaching the
// iteration cap is a normal outcome reported through Result.Converged.
// ctx is checked between iterations so a failing sibling task stops this one.
func (o *Optimizer) Run(ctx context.Context, axis gem.Axis, samples gem.Samples) (Result, error) {
	p := o.params
	est := &GradientEstimator{
		Depths:  o.depths,
		Target:  p.Target,
		Epsilon: p.Epsilon,
		Floor:   p.SVDFloor,
	}
	res := Result{Axis: axis}

	Opsf("%s: aligning %s over %d events (lr=%g tol=%g cap=%d)", axis, p.Target, len(samples), p.LearningRate, p.Tolerance, p.MaxIterations)

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		grad, err := est.Gradient(samples)
		if err != nil {
			return res, fmt.Errorf("%s axis, iteration %d: %w", axis, res.Iterations, err)
		}
		res.Gradient = grad
		Tracef("%s iter %d: grad=%+.6e", axis, res.Iterations, grad)

		if p.ProgressEvery > 0 && o.observer != nil && res.Iterations > 0 && res.Iterations%p.ProgressEvery == 0 {
			cost, err := fit.ChiSquare(samples, o.depths, p.SVDFloor)
			if err != nil {
				return res, fmt.Errorf("%s axis, iteration %d: %w", axis, res.Iterations, err)
			}
			o.observer.Observe(Progress{Axis: axis, Iteration: res.Iterations, Gradient: grad, Shift: res.Shift, Cost: cost})
		}

		if math.Abs(grad) <= p.Tolerance {
			res.Converged = true
			break
		}
		if res.Iterations >= p.MaxIterations {
			break
		}

		step := p.LearningRate * grad
		for i := range samples {
			samples[i][p.Target] -= step
		}
		res.Shift -= step
		res.Iterations++
	}

	cost, err := fit.ChiSquare(samples, o.depths, p.SVDFloor)
	if err != nil {
		return res, fmt.Errorf("%s axis, final cost: %w", axis, err)
	}
	res.Cost = cost

	if res.Converged {
		Opsf("%s: converged after %d iterations, shift=%+.4f chi2=%.6f", axis, res.Iterations, res.Shift, res.Cost)
	} else {
		Opsf("%s: stopped at iteration cap %d with |grad|=%.3e, shift=%+.4f", axis, res.Iterations, math.Abs(res.Gradient), res.Shift)
	}
	return res, nil
}

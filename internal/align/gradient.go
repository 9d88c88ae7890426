package align

import (
	"fmt"

	"github.com/samstevens127/MOLLER-tracking/internal/fit"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// GradientEstimator computes d(cost)/d(shift) of the target plane by central
// finite difference. It reuses an internal buffer and is not safe for
// concurrent use; give each task its own estimator.
type GradientEstimator struct {
	Depths  gem.Depths
	Target  gem.Plane
	Epsilon float64
	Floor   float64

	snapshot []float64
}

// Gradient perturbs the target column of samples by ±Epsilon and returns
// (cost(+ε) − cost(−ε)) / 2ε. The column is restored from a snapshot before
// returning, on success and on error, so repeated calls see the same baseline.
func (g *GradientEstimator) Gradient(samples gem.Samples) (float64, error) {
	if !g.Target.Valid() {
		return 0, fmt.Errorf("invalid target plane %d", g.Target)
	}
	if cap(g.snapshot) < len(samples) {
		g.snapshot = make([]float64, len(samples))
	}
	g.snapshot = g.snapshot[:len(samples)]
	for i := range samples {
		g.snapshot[i] = samples[i][g.Target]
	}
	defer g.restore(samples)

	for i := range samples {
		samples[i][g.Target] = g.snapshot[i] + g.Epsilon
	}
	plus, err := fit.ChiSquare(samples, g.Depths, g.Floor)
	if err != nil {
		return 0, fmt.Errorf("cost at +epsilon: %w", err)
	}

	for i := range samples {
		samples[i][g.Target] = g.snapshot[i] - g.Epsilon
	}
	minus, err := fit.ChiSquare(samples, g.Depths, g.Floor)
	if err != nil {
		return 0, fmt.Errorf("cost at -epsilon: %w", err)
	}

	return (plus - minus) / (2 * g.Epsilon), nil
}

func (g *GradientEstimator) restore(samples gem.Samples) {
	for i := range samples {
		samples[i][g.Target] = g.snapshot[i]
	}
}

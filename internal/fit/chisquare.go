package fit

import (
	"fmt"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// ChiSquare fits every event of one axis and returns the mean squared depth
// residual. Unit weights are used. The first failing event aborts the pass.
func ChiSquare(samples gem.Samples, depths gem.Depths, floor float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoEvents
	}
	var total float64
	for i, u := range samples {
		line, err := FitLine(u, depths, floor)
		if err != nil {
			return 0, fmt.Errorf("event %d: %w", i, err)
		}
		total += line.Residual(u, depths)
	}
	return total / float64(len(samples)), nil
}

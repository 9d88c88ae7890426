package report

import (
	"gonum.org/v1/gonum/stat"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// Summary describes the residual distribution of one plane along one axis.
type Summary struct {
	Plane  gem.Plane
	Axis   gem.Axis
	N      int
	Mean   float64
	StdDev float64 // unbiased; NaN when N < 2
}

// Summarize returns the residual mean and spread for every plane and axis,
// ordered plane first then X before Y. An empty input yields summaries with
// N == 0 and NaN moments.
func Summarize(recs []gem.ResidualRecord) []Summary {
	out := make([]Summary, 0, gem.NumPlanes*len(gem.Axes))
	column := make([]float64, len(recs))
	for p := gem.Plane0; p < gem.NumPlanes; p++ {
		for _, axis := range gem.Axes {
			for i, r := range recs {
				column[i] = r.Axis(axis)[p]
			}
			mean, std := stat.MeanStdDev(column, nil)
			out = append(out, Summary{Plane: p, Axis: axis, N: len(recs), Mean: mean, StdDev: std})
		}
	}
	return out
}

// Package plots produces the diagnostic figures of an alignment run:
// residual histograms with Gaussian fits, residual tilt scatters and the
// optimizer convergence chart.
package plots

import (
	"errors"
	"fmt"
	"math"

	"go-hep.org/x/hep/fit"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/optimize"
)

// ErrTooFewEntries is returned when a histogram holds too little data to fit.
var ErrTooFewEntries = errors.New("too few histogram entries")

// Gaussian is a fitted normal peak A·exp(-(x-Mean)²/2σ²).
type Gaussian struct {
	Amplitude float64
	Mean      float64
	Sigma     float64
}

// At evaluates the peak at x.
func (g Gaussian) At(x float64) float64 {
	d := (x - g.Mean) / g.Sigma
	return g.Amplitude * math.Exp(-0.5*d*d)
}

// Histogram fills a histogram of bins equal-width bins over [lo, hi).
// Values outside the range land in the under/overflow.
func Histogram(values []float64, lo, hi float64, bins int) *hbook.H1D {
	h := hbook.NewH1D(bins, lo, hi)
	for _, v := range values {
		h.Fill(v, 1)
	}
	return h
}

// FitGaussian fits a Gaussian to the populated bins of h with a Nelder-Mead
// chi-square minimisation, seeded from the histogram moments.
func FitGaussian(h *hbook.H1D) (Gaussian, error) {
	var (
		populated int
		peak      float64
	)
	for _, bin := range h.Binning.Bins {
		if w := bin.SumW(); w > 0 {
			populated++
			peak = math.Max(peak, w)
		}
	}
	if populated < 3 {
		return Gaussian{}, fmt.Errorf("%w: %d populated bins", ErrTooFewEntries, populated)
	}

	sigma := h.XStdDev()
	if !(sigma > 0) {
		sigma = h.Binning.Bins[0].XWidth()
	}

	res, err := fit.H1D(h, fit.Func1D{
		F: func(x float64, ps []float64) float64 {
			return Gaussian{Amplitude: ps[0], Mean: ps[1], Sigma: ps[2]}.At(x)
		},
		N:  3,
		Ps: []float64{peak, h.XMean(), sigma},
	}, nil, &optimize.NelderMead{})
	if err != nil {
		return Gaussian{}, fmt.Errorf("gaussian fit: %w", err)
	}

	g := Gaussian{Amplitude: res.X[0], Mean: res.X[1], Sigma: math.Abs(res.X[2])}
	if math.IsNaN(g.Mean) || math.IsNaN(g.Sigma) {
		return Gaussian{}, fmt.Errorf("gaussian fit: non-finite parameters %v", res.X)
	}
	return g, nil
}

// GaussianMean histograms values over [lo, hi) and returns the fitted peak.
func GaussianMean(values []float64, lo, hi float64, bins int) (Gaussian, error) {
	if bins < 1 || !(hi > lo) {
		return Gaussian{}, fmt.Errorf("invalid histogram range [%v, %v) with %d bins", lo, hi, bins)
	}
	return FitGaussian(Histogram(values, lo, hi, bins))
}

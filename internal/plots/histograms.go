package plots

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"

	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/samstevens127/MOLLER-tracking/internal/report"
)

const (
	plotWidth  = 7 * vg.Inch
	plotHeight = 5 * vg.Inch
)

var fitColor = color.RGBA{R: 220, A: 255}

// HistogramSpec sets the residual histogram binning.
type HistogramSpec struct {
	HalfRange float64 // histograms cover [-HalfRange, HalfRange)
	Bins      int
}

// ResidualFit is the Gaussian fitted to one plane's residuals along one axis.
type ResidualFit struct {
	Plane gem.Plane
	Axis  gem.Axis
	Fit   Gaussian
	File  string // PNG written, empty when the fit failed
	Err   error  // fit failure; the others are still produced
}

// ResidualHistograms fits and draws the six residual distributions. A plane
// whose fit fails is reported in its ResidualFit; only write failures abort.
func ResidualHistograms(fsys fsutil.FileSystem, dir string, recs []gem.ResidualRecord, spec HistogramSpec) ([]ResidualFit, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	out := make([]ResidualFit, 0, gem.NumPlanes*len(gem.Axes))
	values := make([]float64, len(recs))
	for p := gem.Plane0; p < gem.NumPlanes; p++ {
		for _, axis := range gem.Axes {
			for i, r := range recs {
				values[i] = r.Axis(axis)[p]
			}
			h := Histogram(values, -spec.HalfRange, spec.HalfRange, spec.Bins)
			rf := ResidualFit{Plane: p, Axis: axis}
			rf.Fit, rf.Err = FitGaussian(h)
			if rf.Err != nil {
				out = append(out, rf)
				continue
			}

			hp := hplot.New()
			hp.Title.Text = fmt.Sprintf("%s %s residual (mean %.3f mm)", p, axis, rf.Fit.Mean)
			hp.X.Label.Text = fmt.Sprintf("%s residual (mm)", axis)
			hp.Y.Label.Text = "Events"

			hh := hplot.NewH1D(h)
			hh.Infos.Style = hplot.HInfoSummary
			hp.Add(hh)

			fn := plotter.NewFunction(rf.Fit.At)
			fn.Color = fitColor
			fn.Width = vg.Points(1.5)
			fn.Samples = 4 * spec.Bins
			hp.Add(fn)

			rf.File = filepath.Join(dir, fmt.Sprintf("residual_%s_gem%d.png", axis, int(p)+1))
			if err := savePNG(fsys, hp.Plot, rf.File); err != nil {
				return out, err
			}
			out = append(out, rf)
		}
	}
	return out, nil
}

// savePNG renders p through fsys.
func savePNG(fsys fsutil.FileSystem, p *plot.Plot, name string) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return report.WriteFile(fsys, name, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

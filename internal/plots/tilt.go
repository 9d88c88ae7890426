package plots

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// Tilt is a first-order fit residual = Slope·coordinate + Intercept. A
// non-zero slope of the x residual against y indicates a rotation of the
// plane about the beam axis.
type Tilt struct {
	Slope     float64
	Intercept float64
}

// TiltFit fits a straight line through (xs[i], ys[i]) by least squares.
func TiltFit(xs, ys []float64) (Tilt, error) {
	if len(xs) != len(ys) {
		return Tilt{}, fmt.Errorf("length mismatch: %d vs %d", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return Tilt{}, fmt.Errorf("%w: %d points", ErrTooFewEntries, len(xs))
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Tilt{Slope: beta, Intercept: alpha}, nil
}

// PlaneTilt holds both tilt fits of one plane.
type PlaneTilt struct {
	Plane gem.Plane
	XvsY  Tilt // x residual against hit y
	YvsX  Tilt // y residual against hit x
	Files [2]string
}

// TiltPlots fits and draws x residual against y and y residual against x for
// every plane. recs must be in the order of set.
func TiltPlots(fsys fsutil.FileSystem, dir string, set *gem.EventSet, recs []gem.ResidualRecord) ([]PlaneTilt, error) {
	if len(recs) != set.Len() {
		return nil, fmt.Errorf("residual count %d does not match event count %d", len(recs), set.Len())
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	out := make([]PlaneTilt, 0, gem.NumPlanes)
	for p := gem.Plane0; p < gem.NumPlanes; p++ {
		xs, ys := make([]float64, set.Len()), make([]float64, set.Len())
		xres, yres := make([]float64, set.Len()), make([]float64, set.Len())
		for i := 0; i < set.Len(); i++ {
			_, t := set.At(i)
			xs[i], ys[i] = t[p].X, t[p].Y
			xres[i], yres[i] = recs[i].X[p], recs[i].Y[p]
		}

		pt := PlaneTilt{Plane: p}
		var err error
		if pt.XvsY, err = TiltFit(ys, xres); err != nil {
			return out, fmt.Errorf("%s x vs y: %w", p, err)
		}
		if pt.YvsX, err = TiltFit(xs, yres); err != nil {
			return out, fmt.Errorf("%s y vs x: %w", p, err)
		}

		pt.Files[0] = filepath.Join(dir, fmt.Sprintf("tilt_x_vs_y_gem%d.png", int(p)+1))
		if err := drawTilt(fsys, pt.Files[0], fmt.Sprintf("%s x residual vs y", p), "y (mm)", "x residual (mm)", ys, xres, pt.XvsY); err != nil {
			return out, err
		}
		pt.Files[1] = filepath.Join(dir, fmt.Sprintf("tilt_y_vs_x_gem%d.png", int(p)+1))
		if err := drawTilt(fsys, pt.Files[1], fmt.Sprintf("%s y residual vs x", p), "x (mm)", "y residual (mm)", xs, yres, pt.YvsX); err != nil {
			return out, err
		}
		out = append(out, pt)
	}
	return out, nil
}

func drawTilt(fsys fsutil.FileSystem, name, title, xlabel, ylabel string, xs, ys []float64, tilt Tilt) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: slope %.3g, intercept %.3g", title, tilt.Slope, tilt.Intercept)
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("scatter %s: %w", name, err)
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(sc)

	fn := plotter.NewFunction(func(x float64) float64 { return tilt.Slope*x + tilt.Intercept })
	fn.Color = fitColor
	fn.Width = vg.Points(1.5)
	p.Add(fn)

	return savePNG(fsys, p, name)
}

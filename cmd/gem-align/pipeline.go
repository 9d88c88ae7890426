package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/samstevens127/MOLLER-tracking/internal/align"
	"github.com/samstevens127/MOLLER-tracking/internal/config"
	"github.com/samstevens127/MOLLER-tracking/internal/diagnostics"
	"github.com/samstevens127/MOLLER-tracking/internal/fit"
	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/samstevens127/MOLLER-tracking/internal/hits"
	"github.com/samstevens127/MOLLER-tracking/internal/plots"
	"github.com/samstevens127/MOLLER-tracking/internal/report"
	"github.com/samstevens127/MOLLER-tracking/internal/runstore"
	"github.com/samstevens127/MOLLER-tracking/internal/timeutil"
)

// convergenceFile is written next to the PNGs when plots are enabled.
const convergenceFile = "convergence.html"

// pipeline is one end-to-end alignment run.
type pipeline struct {
	fsys   fsutil.FileSystem
	cfg    *config.Config
	plots  bool
	dbPath string
	clock  timeutil.Clock
}

// outcome is what a run produced, for the console summary.
type outcome struct {
	Stats     hits.MergeStats
	Target    gem.Plane
	Alignment align.Alignment
	Summaries []report.Summary
	Fits      []plots.ResidualFit
	Tilts     []plots.PlaneTilt
	Files     []string
	RunID     uuid.UUID
	Elapsed   time.Duration
}

func (p pipeline) run(ctx context.Context) (outcome, error) {
	var out outcome
	clock := p.clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	started := clock.Now()
	cfg := p.cfg

	set, stats, err := hits.Load(p.fsys, cfg)
	if err != nil {
		return out, fmt.Errorf("ingest: %w", err)
	}
	out.Stats = stats
	if set.Len() == 0 {
		return out, fmt.Errorf("ingest: no event hit all %d planes: %w", gem.NumPlanes, fit.ErrNoEvents)
	}

	depths := cfg.Geometry.GetDepths()
	params := cfg.AlignParams()
	out.Target = params.Target

	rec := align.NewRecorder()
	opt, err := align.NewOptimizer(depths, params, align.Observers{rec, align.LogObserver})
	if err != nil {
		return out, err
	}
	if out.Alignment, err = align.AlignPlanes(ctx, set, opt); err != nil {
		return out, err
	}

	residuals, err := diagnostics.Residuals(ctx, set, depths, cfg.Alignment.GetResidualWorkers())
	if err != nil {
		return out, fmt.Errorf("residuals: %w", err)
	}
	angles, err := diagnostics.Angles(set, depths)
	if err != nil {
		return out, fmt.Errorf("angles: %w", err)
	}
	out.Summaries = report.Summarize(residuals)

	if err := p.fsys.MkdirAll(cfg.Output.GetDir(), 0o755); err != nil {
		return out, fmt.Errorf("output directory: %w", err)
	}
	tables := []struct {
		name  string
		write func(io.Writer) error
	}{
		{cfg.Output.GetResidualsFile(), func(w io.Writer) error { return report.WriteResiduals(w, residuals, depths) }},
		{cfg.Output.GetAnglesFile(), func(w io.Writer) error { return report.WriteAngles(w, angles) }},
		{cfg.Output.GetCorrectedFile(), func(w io.Writer) error { return report.WriteCorrected(w, set) }},
	}
	for _, t := range tables {
		path := cfg.Output.Path(t.name)
		if err := report.WriteFile(p.fsys, path, t.write); err != nil {
			return out, err
		}
		out.Files = append(out.Files, path)
	}

	if p.plots || cfg.Output.GetPlots() {
		if err := p.writePlots(&out, set, residuals, rec); err != nil {
			return out, fmt.Errorf("plots: %w", err)
		}
	}

	dbPath := p.dbPath
	if dbPath == "" {
		dbPath = cfg.Store.GetPath()
	}
	if dbPath != "" {
		run := runstore.NewRun(started)
		run.Input = filepath.Join(cfg.DataFile.GetDataPath(), cfg.DataFile.GetFilename())
		run.Events = set.Len()
		run.Params = params
		run.X, run.Y = out.Alignment.X, out.Alignment.Y
		run.Residuals = out.Summaries
		if err := record(ctx, dbPath, run); err != nil {
			return out, fmt.Errorf("run store: %w", err)
		}
		out.RunID = run.ID
	}
	out.Elapsed = clock.Since(started)
	return out, nil
}

func (p pipeline) writePlots(out *outcome, set *gem.EventSet, residuals []gem.ResidualRecord, rec *align.Recorder) error {
	cfg := p.cfg
	dir := cfg.Output.Path("plots")
	if err := p.fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	spec := plots.HistogramSpec{HalfRange: cfg.Output.GetHistogramRange(), Bins: cfg.Output.GetHistogramBins()}
	fits, err := plots.ResidualHistograms(p.fsys, dir, residuals, spec)
	if err != nil {
		return err
	}
	out.Fits = fits
	for _, f := range fits {
		if f.Err != nil {
			align.Opsf("no gaussian for %s %s residuals: %v", f.Plane, f.Axis, f.Err)
			continue
		}
		out.Files = append(out.Files, f.File)
	}

	tilts, err := plots.TiltPlots(p.fsys, dir, set, residuals)
	if err != nil {
		return err
	}
	out.Tilts = tilts
	for _, t := range tilts {
		out.Files = append(out.Files, t.Files[:]...)
	}

	subtitle := fmt.Sprintf("%s, %d events", cfg.DataFile.GetFilename(), set.Len())
	path := filepath.Join(dir, convergenceFile)
	if err := report.WriteFile(p.fsys, path, func(w io.Writer) error {
		return plots.ConvergenceChart(w, rec, subtitle)
	}); err != nil {
		return err
	}
	out.Files = append(out.Files, path)
	return nil
}

func record(ctx context.Context, path string, run runstore.Run) error {
	store, err := runstore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(ctx, run)
}

// printSummary writes the console report of a finished run.
func printSummary(w io.Writer, o outcome) {
	fmt.Fprintf(w, "%d events hit all %d planes (unmatched:", o.Stats.Matched, gem.NumPlanes)
	for p := gem.Plane0; p < gem.NumPlanes; p++ {
		fmt.Fprintf(w, " %s %d", p, o.Stats.Dropped(p))
	}
	fmt.Fprintln(w, ")")

	shift := o.Alignment.Shift()
	fmt.Fprintf(w, "%s shifted %.6f mm in X, %.6f mm in Y\n", o.Target, shift.DX, shift.DY)
	for _, r := range []align.Result{o.Alignment.X, o.Alignment.Y} {
		fmt.Fprintf(w, "  %s: %s after %d iterations (gradient %.3e, chi2 %.6g)\n",
			r.Axis, r.Status(), r.Iterations, r.Gradient, r.Cost)
	}

	fmt.Fprintln(w, "Residuals (mean ± std dev, mm):")
	for _, s := range o.Summaries {
		fmt.Fprintf(w, "  %s %s: %+.4f ± %.4f (n=%d)\n", s.Plane, s.Axis, s.Mean, s.StdDev, s.N)
	}
	for _, f := range o.Fits {
		if f.Err == nil {
			fmt.Fprintf(w, "  %s %s gaussian: mean %+.4f sigma %.4f\n", f.Plane, f.Axis, f.Fit.Mean, f.Fit.Sigma)
		}
	}
	for _, t := range o.Tilts {
		fmt.Fprintf(w, "  %s tilt: x vs y slope %+.5f, y vs x slope %+.5f\n", t.Plane, t.XvsY.Slope, t.YvsX.Slope)
	}

	for _, f := range o.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	if o.RunID != uuid.Nil {
		fmt.Fprintf(w, "recorded run %s\n", o.RunID)
	}
	fmt.Fprintf(w, "finished in %s\n", o.Elapsed.Round(time.Millisecond))
}

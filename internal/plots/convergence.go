package plots

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/samstevens127/MOLLER-tracking/internal/align"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// ConvergenceChart renders the recorded optimizer progress as an HTML page
// with three line charts over iterations: |gradient| on a log axis, the
// accumulated shift and the chi-square cost. Each axis is one series.
func ConvergenceChart(w io.Writer, rec *align.Recorder, subtitle string) error {
	var (
		grads  = lineChart("Gradient magnitude", subtitle, "|dchi2/dshift|", "log")
		shifts = lineChart("Accumulated shift", subtitle, "shift (mm)", "value")
		costs  = lineChart("Chi-square", subtitle, "chi2 (mm^2)", "value")
	)

	for _, axis := range gem.Axes {
		hist := rec.History(axis)
		g := make([]opts.LineData, 0, len(hist))
		s := make([]opts.LineData, 0, len(hist))
		c := make([]opts.LineData, 0, len(hist))
		for _, p := range hist {
			// A zero gradient has no place on a log axis.
			if mag := math.Abs(p.Gradient); mag > 0 {
				g = append(g, opts.LineData{Value: []interface{}{p.Iteration, mag}})
			}
			s = append(s, opts.LineData{Value: []interface{}{p.Iteration, p.Shift}})
			c = append(c, opts.LineData{Value: []interface{}{p.Iteration, p.Cost}})
		}
		name := fmt.Sprintf("%s axis", axis)
		grads.AddSeries(name, g)
		shifts.AddSeries(name, s)
		costs.AddSeries(name, c)
	}

	page := components.NewPage().SetPageTitle("gem-align convergence")
	page.AddCharts(grads, shifts, costs)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render convergence chart: %w", err)
	}
	return nil
}

func lineChart(title, subtitle, ylabel, yType string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "iteration", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: yType, Name: ylabel}),
	)
	return line
}

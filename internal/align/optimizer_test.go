package align

import (
	"context"
	"testing"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizerRecoversSingleTrackOffset(t *testing.T) {
	// x = z/180, with plane 1 pushed by +2 mm.
	samples := gem.Samples{{0.0, 1.0 + 2.0, 700.0 / 180.0}}

	opt, err := NewOptimizer(testDepths, testParams(), nil)
	require.NoError(t, err)

	res, err := opt.Run(context.Background(), gem.AxisX, samples)
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.Equal(t, "converged", res.Status())
	assert.Less(t, res.Iterations, testParams().MaxIterations)
	assert.InDelta(t, -2.0, res.Shift, 1e-2)
	assert.InDelta(t, 1.0, samples[0][1], 1e-2)
	assert.InDelta(t, 0, res.Cost, 1e-3)
	assert.Equal(t, 0.0, samples[0][0], "non-target planes untouched")
}

func TestOptimizerRecoversSyntheticOffsets(t *testing.T) {
	for _, delta := range []float64{2.0, -1.5, 0.5} {
		samples := shiftPlane(straightTracks(12, -30, 5, 0.5, 0.125), gem.Plane1, delta)

		opt, err := NewOptimizer(testDepths, testParams(), nil)
		require.NoError(t, err)
		res, err := opt.Run(context.Background(), gem.AxisX, samples)
		require.NoError(t, err)

		assert.True(t, res.Converged, "delta=%v", delta)
		assert.InDelta(t, -delta, res.Shift, 1e-2, "delta=%v", delta)
	}
}

// With the reference learning rate a single steep track overshoots the
// minimum forever; the run must still stop at the cap.
func TestOptimizerStopsAtIterationCap(t *testing.T) {
	samples := gem.Samples{{0.0, 3.0, 700.0 / 180.0}}

	opt, err := NewOptimizer(testDepths, DefaultParams(), nil)
	require.NoError(t, err)
	res, err := opt.Run(context.Background(), gem.AxisX, samples)
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Equal(t, "capped", res.Status())
	assert.Equal(t, 4000, res.Iterations)
	assert.Greater(t, res.Gradient*res.Gradient, 1.0)
}

func TestOptimizerNeverExceedsCap(t *testing.T) {
	for _, limit := range []int{0, 1, 5, 37} {
		p := testParams()
		p.MaxIterations = limit
		samples := shiftPlane(straightTracks(6, 0, 1, 1, 0.1), gem.Plane1, 25)

		opt, err := NewOptimizer(testDepths, p, nil)
		require.NoError(t, err)
		res, err := opt.Run(context.Background(), gem.AxisY, samples)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Iterations, limit)
		assert.Equal(t, gem.AxisY, res.Axis)
	}
}

func TestOptimizerReportsProgressPeriodically(t *testing.T) {
	p := testParams()
	p.MaxIterations = 25
	p.Tolerance = 0 // never converge
	rec := NewRecorder()

	opt, err := NewOptimizer(testDepths, p, rec)
	require.NoError(t, err)
	samples := shiftPlane(straightTracks(4, 1, 2, 0.8, 0.2), gem.Plane1, 3)
	res, err := opt.Run(context.Background(), gem.AxisX, samples)
	require.NoError(t, err)
	require.Equal(t, 25, res.Iterations)

	hist := rec.History(gem.AxisX)
	require.Len(t, hist, 2)
	assert.Equal(t, 10, hist[0].Iteration)
	assert.Equal(t, 20, hist[1].Iteration)
	assert.Empty(t, rec.History(gem.AxisY))
	for _, h := range hist {
		assert.Equal(t, gem.AxisX, h.Axis)
		assert.GreaterOrEqual(t, h.Cost, 0.0)
	}
}

func TestOptimizerIsDeterministic(t *testing.T) {
	base := shiftPlane(straightTracks(12, -30, 5, 0.5, 0.125), gem.Plane1, 2)
	opt, err := NewOptimizer(testDepths, testParams(), nil)
	require.NoError(t, err)

	a, b := base.Clone(), base.Clone()
	ra, err := opt.Run(context.Background(), gem.AxisX, a)
	require.NoError(t, err)
	rb, err := opt.Run(context.Background(), gem.AxisX, b)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
	assert.Equal(t, a, b)
}

func TestOptimizerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opt, err := NewOptimizer(testDepths, testParams(), nil)
	require.NoError(t, err)
	_, err = opt.Run(ctx, gem.AxisX, gem.Samples{{0, 1, 2}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"bad target", func(p *Params) { p.Target = 3 }},
		{"zero learning rate", func(p *Params) { p.LearningRate = 0 }},
		{"negative tolerance", func(p *Params) { p.Tolerance = -1 }},
		{"negative cap", func(p *Params) { p.MaxIterations = -1 }},
		{"zero epsilon", func(p *Params) { p.Epsilon = 0 }},
		{"negative floor", func(p *Params) { p.SVDFloor = -1 }},
		{"negative progress", func(p *Params) { p.ProgressEvery = -10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
			_, err := NewOptimizer(testDepths, p, nil)
			assert.Error(t, err)
		})
	}

	_, err := NewOptimizer(gem.Depths{0, 0, 1}, DefaultParams(), nil)
	assert.Error(t, err)
}

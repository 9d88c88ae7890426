package runstore

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samstevens127/MOLLER-tracking/internal/align"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/samstevens127/MOLLER-tracking/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(started time.Time) Run {
	r := NewRun(started)
	r.Input = "data/run1289"
	r.Events = 5120
	r.Params = align.DefaultParams()
	r.X = align.Result{Axis: gem.AxisX, Shift: -1.93, Iterations: 4000, Converged: false, Gradient: 3006.2, Cost: 17.5}
	r.Y = align.Result{Axis: gem.AxisY, Shift: 0.41, Iterations: 212, Converged: true, Gradient: 9e-4, Cost: 12.25}
	r.Residuals = []report.Summary{
		{Plane: gem.Plane0, Axis: gem.AxisX, N: 5120, Mean: 0.01, StdDev: 0.8},
		{Plane: gem.Plane0, Axis: gem.AxisY, N: 5120, Mean: -0.02, StdDev: 0.9},
		{Plane: gem.Plane1, Axis: gem.AxisX, N: 5120, Mean: 0, StdDev: 0.3},
	}
	return r
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	run := sampleRun(time.Unix(1700000000, 0))
	require.NoError(t, s.RecordRun(ctx, run))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRecordAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC))
	require.NoError(t, s.RecordRun(ctx, run))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	// The ledger does not keep the SVD floor or the progress period.
	want := run
	want.Params.SVDFloor = 0
	want.Params.ProgressEvery = 0
	if diff := cmp.Diff(want, runs[0], cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("ListRuns mismatch (-want +got):\n%s", diff)
	}
}

func TestListRuns_NewestFirstAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		r := sampleRun(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, r.ID)
		require.NoError(t, s.RecordRun(ctx, r))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordRun_NaNResidualsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Unix(1, 0))
	run.Residuals = []report.Summary{{Plane: gem.Plane2, Axis: gem.AxisY, N: 1, Mean: 0.5, StdDev: math.NaN()}}
	require.NoError(t, s.RecordRun(ctx, run))

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs[0].Residuals, 1)
	got := runs[0].Residuals[0]
	assert.Equal(t, gem.Plane2, got.Plane)
	assert.Equal(t, gem.AxisY, got.Axis)
	assert.Equal(t, 0.5, got.Mean)
	assert.True(t, math.IsNaN(got.StdDev))
}

func TestRecordRun_RejectsDuplicateAndNilID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Unix(1, 0))
	require.NoError(t, s.RecordRun(ctx, run))
	assert.Error(t, s.RecordRun(ctx, run))

	run.ID = uuid.Nil
	assert.ErrorContains(t, s.RecordRun(ctx, run), "no identifier")

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordRun_DuplicateResidualRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun(time.Unix(1, 0))
	run.Residuals = append(run.Residuals, run.Residuals[0])
	assert.Error(t, s.RecordRun(ctx, run))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RecordRun(context.Background(), sampleRun(time.Unix(5, 0))))
	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

package report

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

func TestWriteResiduals(t *testing.T) {
	recs := []gem.ResidualRecord{
		{Event: 12, X: [3]float64{0.5, -1, 0.25}, Y: [3]float64{0, 2, -0.125}},
		{Event: 40, X: [3]float64{1e-7, 0, 0}, Y: [3]float64{3, 3, 3}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteResiduals(&buf, recs, gem.DefaultDepths))

	want := "12\t0.5\t0\t0\t-1\t2\t180\t0.25\t-0.125\t700\n" +
		"40\t1e-07\t3\t0\t0\t3\t180\t0\t3\t700\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteAngles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAngles(&buf, []gem.AngleRecord{
		{Event: 3, Polar: 1.5, AngleX: 88.5, AngleY: 90},
	}))
	assert.Equal(t, "3\t1.5\t88.5\t90\n", buf.String())
}

func TestWriteCorrected(t *testing.T) {
	set := gem.NewEventSet(1)
	require.NoError(t, set.Add(9, gem.Track{
		{X: 1, Y: 2, XCharge: 10, YCharge: 11, HADC: 100, LADC: 5, Run: 42, HV: 3400},
		{X: 1.5, Y: 2.5},
		{X: -3, Y: 0.125, Run: 42},
	}))

	var buf bytes.Buffer
	require.NoError(t, WriteCorrected(&buf, set))
	want := "9\t0\t1\t2\t10\t11\t100\t5\t42\t3400\n" +
		"9\t1\t1.5\t2.5\t0\t0\t0\t0\t0\t0\n" +
		"9\t2\t-3\t0.125\t0\t0\t0\t0\t42\t0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteEmptyTables(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResiduals(&buf, nil, gem.DefaultDepths))
	require.NoError(t, WriteAngles(&buf, nil))
	require.NoError(t, WriteCorrected(&buf, gem.NewEventSet(0)))
	assert.Empty(t, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteResiduals_PropagatesWriteError(t *testing.T) {
	err := WriteResiduals(failingWriter{}, []gem.ResidualRecord{{Event: 1}}, gem.DefaultDepths)
	assert.ErrorContains(t, err, "disk full")
}

func TestWriteFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	err := WriteFile(mfs, "out/angles.txt", func(w io.Writer) error {
		return WriteAngles(w, []gem.AngleRecord{{Event: 1}})
	})
	require.NoError(t, err)

	data, err := mfs.ReadFile("out/angles.txt")
	require.NoError(t, err)
	assert.Equal(t, "1\t0\t0\t0\n", string(data))

	err = WriteFile(mfs, "bad.txt", func(io.Writer) error { return errors.New("boom") })
	assert.ErrorContains(t, err, "write bad.txt: boom")
}

func TestSummarize(t *testing.T) {
	recs := []gem.ResidualRecord{
		{Event: 1, X: [3]float64{1, 0, 2}, Y: [3]float64{0, 0, 4}},
		{Event: 2, X: [3]float64{3, 0, 2}, Y: [3]float64{0, 0, 8}},
	}
	got := Summarize(recs)

	want := []Summary{
		{Plane: gem.Plane0, Axis: gem.AxisX, N: 2, Mean: 2, StdDev: math.Sqrt2},
		{Plane: gem.Plane0, Axis: gem.AxisY, N: 2, Mean: 0, StdDev: 0},
		{Plane: gem.Plane1, Axis: gem.AxisX, N: 2, Mean: 0, StdDev: 0},
		{Plane: gem.Plane1, Axis: gem.AxisY, N: 2, Mean: 0, StdDev: 0},
		{Plane: gem.Plane2, Axis: gem.AxisX, N: 2, Mean: 2, StdDev: 0},
		{Plane: gem.Plane2, Axis: gem.AxisY, N: 2, Mean: 6, StdDev: 2 * math.Sqrt2},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_TooFewEvents(t *testing.T) {
	one := Summarize([]gem.ResidualRecord{{Event: 1, X: [3]float64{1, 2, 3}}})
	require.Len(t, one, 6)
	assert.Equal(t, 1.0, one[0].Mean)
	assert.True(t, math.IsNaN(one[0].StdDev))

	none := Summarize(nil)
	require.Len(t, none, 6)
	assert.Equal(t, 0, none[0].N)
	assert.True(t, math.IsNaN(none[0].Mean))
}

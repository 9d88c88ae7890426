package diagnostics

import (
	"math"
	"testing"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackAnglesAlongZ(t *testing.T) {
	pts := [3][3]float64{{0, 0, 0}, {0, 0, 180}, {0, 0, 700}}
	polar, ax, ay, err := TrackAngles(pts)
	require.NoError(t, err)
	assert.InDelta(t, 0, polar, 1e-9)
	assert.InDelta(t, 90, ax, 1e-9)
	assert.InDelta(t, 90, ay, 1e-9)
}

func TestTrackAnglesAlongX(t *testing.T) {
	pts := [3][3]float64{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}}
	polar, ax, ay, err := TrackAngles(pts)
	require.NoError(t, err)
	assert.InDelta(t, 0, ax, 1e-6)
	assert.InDelta(t, 90, polar, 1e-6)
	assert.InDelta(t, 90, ay, 1e-6)
}

func TestDirectionSignPointsDownstream(t *testing.T) {
	cases := [][3][3]float64{
		{{0, 0, -700}, {0, 0, -180}, {0, 0, 0}},
		{{1, 2, 0}, {3, 4, 180}, {-5, 6, 700}},
		{{-1, -1, -10}, {-2, -2, -20}, {-3, -3, -30}},
	}
	for _, pts := range cases {
		v, err := Direction(pts)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v[2], 0.0, "points %v", pts)
		assert.InDelta(t, 1, v[0]*v[0]+v[1]*v[1]+v[2]*v[2], 1e-12)
	}

	// z = 0 everywhere: x decides the sign.
	v, err := Direction([3][3]float64{{-1, 0, 0}, {-2, 0, 0}, {-3, 0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 1, v[0], 1e-12)
}

// Points are not centred: a track parallel to z but offset in x leans toward
// the origin offset.
func TestDirectionIsNotCentred(t *testing.T) {
	pts := [3][3]float64{{10, 0, 0}, {10, 0, 180}, {10, 0, 700}}
	polar, _, _, err := TrackAngles(pts)
	require.NoError(t, err)
	want := 0.5 * math.Atan2(2*10*(180+700), (180*180+700*700)-3*100) * 180 / math.Pi
	assert.InDelta(t, want, polar, 1e-9)
	assert.Greater(t, polar, 0.9)
}

func TestTrackAnglesIsPure(t *testing.T) {
	pts := [3][3]float64{{1.5, -2, 0}, {2.1, -1.2, 180}, {4.4, 1.9, 700}}
	p1, x1, y1, err := TrackAngles(pts)
	require.NoError(t, err)
	p2, x2, y2, err := TrackAngles(pts)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)
}

func TestDirectionRejectsNonFinite(t *testing.T) {
	_, err := Direction([3][3]float64{{math.NaN(), 0, 0}, {0, 0, 1}, {0, 0, 2}})
	assert.ErrorIs(t, err, ErrNoDirection)
}

func TestAnglesOverSet(t *testing.T) {
	set := gem.NewEventSet(2)
	require.NoError(t, set.Add(5, gem.Track{}))
	var tr gem.Track
	tr[0].X, tr[1].X, tr[2].X = 0, 180, 700
	require.NoError(t, set.Add(9, tr))

	recs, err := Angles(set, depths)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint32(5), recs[0].Event)
	assert.InDelta(t, 0, recs[0].Polar, 1e-9)
	// x = z: direction (1, 0, 1)/√2.
	assert.InDelta(t, 45, recs[1].Polar, 1e-9)
	assert.InDelta(t, 45, recs[1].AngleX, 1e-6)
	assert.InDelta(t, 90, recs[1].AngleY, 1e-6)
}

package fit

import (
	"math"
	"testing"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChiSquareIsMeanOfEventResiduals(t *testing.T) {
	samples := gem.Samples{
		{0, 1, 2},
		onLine(1, 0.01),
	}
	cost, err := ChiSquare(samples, depths, DefaultSVDFloor)
	require.NoError(t, err)
	assert.InDelta(t, (19266.0+2.0/3.0)/2, cost, 1e-6)
}

func TestChiSquareCollinearSetIsZero(t *testing.T) {
	samples := gem.Samples{onLine(0, 1.0/180), onLine(3, -0.02), onLine(-7, 0.004)}
	cost, err := ChiSquare(samples, depths, DefaultSVDFloor)
	require.NoError(t, err)
	assert.InDelta(t, 0, cost, 1e-9)
}

func TestChiSquareErrors(t *testing.T) {
	_, err := ChiSquare(nil, depths, DefaultSVDFloor)
	assert.ErrorIs(t, err, ErrNoEvents)

	samples := gem.Samples{{0, 1, 2}, {0, math.Inf(-1), 2}}
	_, err = ChiSquare(samples, depths, DefaultSVDFloor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Contains(t, err.Error(), "event 1")
}

func TestChiSquareDoesNotMutateInput(t *testing.T) {
	samples := gem.Samples{{0, 1, 2}, {3, 4, 6}}
	before := samples.Clone()
	_, err := ChiSquare(samples, depths, DefaultSVDFloor)
	require.NoError(t, err)
	assert.Equal(t, before, samples)
}

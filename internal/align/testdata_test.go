package align

import "github.com/samstevens127/MOLLER-tracking/internal/gem"

var testDepths = gem.Depths{0, 180, 700}

// straightTracks returns n tracks u = a_k + b_k·z with b_k spread around 1/180.
func straightTracks(n int, a0, da, b0, db float64) gem.Samples {
	out := make(gem.Samples, n)
	for k := range out {
		a := a0 + da*float64(k)
		b := (b0 + db*float64(k)) / 180.0
		for p := range out[k] {
			out[k][p] = a + b*testDepths[p]
		}
	}
	return out
}

// shiftPlane offsets the plane column of every row by delta.
func shiftPlane(s gem.Samples, plane gem.Plane, delta float64) gem.Samples {
	out := s.Clone()
	for i := range out {
		out[i][plane] += delta
	}
	return out
}

func testParams() Params {
	p := DefaultParams()
	p.LearningRate = 1e-5
	return p
}

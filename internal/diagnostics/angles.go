package diagnostics

import (
	"errors"
	"fmt"
	"math"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"gonum.org/v1/gonum/mat"
)

// ErrNoDirection reports a track whose decomposition failed.
var ErrNoDirection = errors.New("no track direction")

// signTolerance treats rounding noise in a unit vector component as zero when
// choosing the sign.
const signTolerance = 1e-12

// Direction returns the leading right-singular vector of the 3×3 matrix whose
// rows are the track points (x, y, z). The points are not centred, so the
// direction is relative to the coordinate origin.
//
// An SVD fixes the vector only up to sign. The result is flipped so that the
// first component in the order z, x, y with magnitude above signTolerance is
// positive.
func Direction(points [gem.NumPlanes][3]float64) ([3]float64, error) {
	data := make([]float64, 0, 9)
	for _, p := range points {
		for _, c := range p {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return [3]float64{}, fmt.Errorf("point %v: %w", p, ErrNoDirection)
			}
		}
		data = append(data, p[0], p[1], p[2])
	}

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(3, 3, data), mat.SVDFull); !ok {
		return [3]float64{}, fmt.Errorf("svd factorization failed: %w", ErrNoDirection)
	}
	var v mat.Dense
	svd.VTo(&v)

	dir := [3]float64{v.At(0, 0), v.At(1, 0), v.At(2, 0)}
	for _, c := range [3]int{2, 0, 1} {
		if math.Abs(dir[c]) <= signTolerance {
			continue
		}
		if dir[c] < 0 {
			for i := range dir {
				dir[i] = -dir[i]
			}
		}
		break
	}
	return dir, nil
}

// TrackAngles converts the direction of points into degrees: the polar
// angle atan2(v_x, v_z) and the projection angles acos(v_x) and acos(v_y).
func TrackAngles(points [gem.NumPlanes][3]float64) (polar, angleX, angleY float64, err error) {
	v, err := Direction(points)
	if err != nil {
		return 0, 0, 0, err
	}
	polar = degrees(math.Atan2(v[0], v[2]))
	angleX = degrees(math.Acos(clamp(v[0])))
	angleY = degrees(math.Acos(clamp(v[1])))
	return polar, angleX, angleY, nil
}

// Angles computes the angle record of every event of set, in set order.
func Angles(set *gem.EventSet, depths gem.Depths) ([]gem.AngleRecord, error) {
	out := make([]gem.AngleRecord, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		id, tr := set.At(i)
		polar, ax, ay, err := TrackAngles(tr.Points(depths))
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", id, err)
		}
		out = append(out, gem.AngleRecord{Event: id, Polar: polar, AngleX: ax, AngleY: ay})
	}
	return out, nil
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v float64) float64 { return math.Max(-1, math.Min(1, v)) }

package gem

import (
	"fmt"
	"math"
)

// NumPlanes is the number of GEM planes in the telescope.
const NumPlanes = 3

// Plane indexes a GEM plane in increasing depth order.
type Plane int

const (
	Plane0 Plane = iota
	Plane1
	Plane2
)

// Valid reports whether p names one of the three planes.
func (p Plane) Valid() bool { return p >= Plane0 && p < NumPlanes }

func (p Plane) String() string { return fmt.Sprintf("GEM-%d", int(p)+1) }

// Axis selects the transverse coordinate being aligned.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "unknown"
	}
}

// Axes lists both transverse axes in output order.
var Axes = [2]Axis{AxisX, AxisY}

// Hit is a single plane measurement. X and Y are in millimetres; the
// remaining fields are carried through untouched.
type Hit struct {
	X       float64
	Y       float64
	XCharge float64
	YCharge float64
	HADC    uint16 // High-gain amplitude channel
	LADC    uint16 // Low-gain amplitude channel
	Run     uint16
	HV      uint16
}

// Coord returns the hit coordinate along axis.
func (h Hit) Coord(axis Axis) float64 {
	if axis == AxisY {
		return h.Y
	}
	return h.X
}

// SetCoord overwrites the hit coordinate along axis.
func (h *Hit) SetCoord(axis Axis, v float64) {
	if axis == AxisY {
		h.Y = v
		return
	}
	h.X = v
}

// Track holds one hit per plane, indexed by Plane.
type Track [NumPlanes]Hit

// Depths are the z positions (mm) of the three planes.
type Depths [NumPlanes]float64

// DefaultDepths is the MOLLER test-stand geometry.
var DefaultDepths = Depths{0, 180, 700}

// Validate checks the depths are finite and pairwise distinct.
func (d Depths) Validate() error {
	for i, z := range d {
		if math.IsNaN(z) || math.IsInf(z, 0) {
			return fmt.Errorf("depth %d is not finite: %v", i, z)
		}
	}
	for i := 0; i < NumPlanes; i++ {
		for j := i + 1; j < NumPlanes; j++ {
			if d[i] == d[j] {
				return fmt.Errorf("depths %d and %d coincide at %v", i, j, d[i])
			}
		}
	}
	return nil
}

// Samples is the single-axis projection of an event set: one row per event,
// one column per plane.
type Samples [][NumPlanes]float64

// Clone returns a deep copy of s.
func (s Samples) Clone() Samples {
	out := make(Samples, len(s))
	copy(out, s)
	return out
}

// ShiftVector is the accumulated correction applied to the target plane.
type ShiftVector struct {
	DX float64
	DY float64
}

// ResidualRecord holds the leave-one-out residuals of one event.
type ResidualRecord struct {
	Event uint32
	X     [NumPlanes]float64
	Y     [NumPlanes]float64
}

// Axis returns the residuals along axis.
func (r ResidualRecord) Axis(axis Axis) [NumPlanes]float64 {
	if axis == AxisY {
		return r.Y
	}
	return r.X
}

// AngleRecord holds the fitted direction angles of one event, in degrees.
type AngleRecord struct {
	Event  uint32
	Polar  float64
	AngleX float64
	AngleY float64
}

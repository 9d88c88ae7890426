package gem

import "fmt"

// EventSet maps event identifiers to complete tracks. Iteration follows
// insertion order so that sums over events are reproducible.
type EventSet struct {
	ids    []uint32
	tracks []Track
	index  map[uint32]int
}

// NewEventSet returns an empty set with room for n events.
func NewEventSet(n int) *EventSet {
	return &EventSet{
		ids:    make([]uint32, 0, n),
		tracks: make([]Track, 0, n),
		index:  make(map[uint32]int, n),
	}
}

// Add inserts a track. Event identifiers must be unique.
func (s *EventSet) Add(id uint32, t Track) error {
	if _, ok := s.index[id]; ok {
		return fmt.Errorf("duplicate event %d", id)
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.tracks = append(s.tracks, t)
	return nil
}

// Len returns the number of events.
func (s *EventSet) Len() int { return len(s.ids) }

// Get returns the track for id.
func (s *EventSet) Get(id uint32) (Track, bool) {
	i, ok := s.index[id]
	if !ok {
		return Track{}, false
	}
	return s.tracks[i], true
}

// IDs returns the event identifiers in set order.
func (s *EventSet) IDs() []uint32 {
	out := make([]uint32, len(s.ids))
	copy(out, s.ids)
	return out
}

// At returns the i-th event in set order.
func (s *EventSet) At(i int) (uint32, Track) { return s.ids[i], s.tracks[i] }

// Project extracts the coordinates along axis, one row per event in set order.
func (s *EventSet) Project(axis Axis) Samples {
	out := make(Samples, len(s.tracks))
	for i, t := range s.tracks {
		for p := range t {
			out[i][p] = t[p].Coord(axis)
		}
	}
	return out
}

// ApplyPlane writes the plane column of samples back into the set along axis.
// samples must come from Project on this set.
func (s *EventSet) ApplyPlane(axis Axis, plane Plane, samples Samples) error {
	if len(samples) != len(s.tracks) {
		return fmt.Errorf("sample count %d does not match event count %d", len(samples), len(s.tracks))
	}
	if !plane.Valid() {
		return fmt.Errorf("invalid plane %d", plane)
	}
	for i := range s.tracks {
		s.tracks[i][plane].SetCoord(axis, samples[i][plane])
	}
	return nil
}

// Points returns the track as (x, y, z) rows using depths for z.
func (t Track) Points(depths Depths) [NumPlanes][3]float64 {
	var pts [NumPlanes][3]float64
	for p := range t {
		pts[p] = [3]float64{t[p].X, t[p].Y, depths[p]}
	}
	return pts
}

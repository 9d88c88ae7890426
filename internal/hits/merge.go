package hits

import (
	"fmt"
	"io"

	"github.com/samstevens127/MOLLER-tracking/internal/config"
	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// MergeStats counts what the merge read and kept.
type MergeStats struct {
	Read    [gem.NumPlanes]int // records per plane file
	Matched int                // events present on every plane
}

// Dropped returns how many records of plane p had no partner on the other
// planes.
func (s MergeStats) Dropped(p gem.Plane) int { return s.Read[p] - s.Matched }

// Merge walks the three readers in lockstep and keeps the events seen on all
// planes. Each step advances every reader whose head holds the smallest event
// number; when all heads agree the three hits become one track. The remainder
// of each file is still read so that ordering errors anywhere are reported.
func Merge(readers [gem.NumPlanes]*Reader) (*gem.EventSet, MergeStats, error) {
	var (
		heads [gem.NumPlanes]Record
		live  [gem.NumPlanes]bool
		stats MergeStats
	)
	advance := func(i int) error {
		rec, err := readers[i].Next()
		if err == io.EOF {
			live[i] = false
			return nil
		}
		if err != nil {
			return err
		}
		heads[i], live[i] = rec, true
		return nil
	}
	advanceAll := func(match func(int) bool) error {
		for i := range readers {
			if match(i) {
				if err := advance(i); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := advanceAll(func(int) bool { return true }); err != nil {
		return nil, stats, err
	}

	set := gem.NewEventSet(0)
	for live[0] && live[1] && live[2] {
		lo, hi := heads[0].Event, heads[0].Event
		for _, h := range heads[1:] {
			lo, hi = min(lo, h.Event), max(hi, h.Event)
		}

		if lo == hi {
			var t gem.Track
			for i := range heads {
				t[i] = heads[i].Hit
			}
			if err := set.Add(lo, t); err != nil {
				return nil, stats, err
			}
			if err := advanceAll(func(int) bool { return true }); err != nil {
				return nil, stats, err
			}
			continue
		}

		if err := advanceAll(func(i int) bool { return heads[i].Event == lo }); err != nil {
			return nil, stats, err
		}
	}

	for i := range readers {
		for live[i] {
			if err := advance(i); err != nil {
				return nil, stats, err
			}
		}
		stats.Read[i] = readers[i].Count()
	}
	stats.Matched = set.Len()
	return set, stats, nil
}

// Load opens the plane files named by cfg and merges them.
func Load(fsys fsutil.FileSystem, cfg *config.Config) (*gem.EventSet, MergeStats, error) {
	var readers [gem.NumPlanes]*Reader
	pitch := cfg.Geometry.GetStripPitch()

	for i, path := range cfg.DataFile.PlaneFiles() {
		f, err := fsys.Open(path)
		if err != nil {
			return nil, MergeStats{}, fmt.Errorf("open plane %d: %w", i+1, err)
		}
		defer f.Close()
		readers[i] = NewReader(f, path, pitch)
	}

	set, stats, err := Merge(readers)
	if err != nil {
		return nil, stats, err
	}

	for i, r := range readers {
		debugf("%s: %d hits, %d unmatched", r.Name(), stats.Read[i], stats.Dropped(gem.Plane(i)))
	}
	debugf("%d events hit all %d planes", stats.Matched, gem.NumPlanes)
	return set, stats, nil
}

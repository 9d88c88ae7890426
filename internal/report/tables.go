// Package report writes the alignment output tables. Every table is tab
// separated with one row per record and no header:
//
//	residuals  event x0 y0 z0 x1 y1 z1 x2 y2 z2
//	angles     event polar angle_x angle_y
//	corrected  event plane x y x_charge y_charge hadc ladc run hv
//
// Residual and coordinate columns are millimetres, angles are degrees and
// plane is the zero-based plane index.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func utoa[T uint16 | uint32](v T) string { return strconv.FormatUint(uint64(v), 10) }

// WriteResiduals writes the leave-one-out residual table. Each plane
// contributes its x residual, its y residual and its depth.
func WriteResiduals(w io.Writer, recs []gem.ResidualRecord, depths gem.Depths) error {
	cw := newWriter(w)
	row := make([]string, 0, 1+3*gem.NumPlanes)
	for _, r := range recs {
		row = append(row[:0], utoa(r.Event))
		for p := 0; p < gem.NumPlanes; p++ {
			row = append(row, ftoa(r.X[p]), ftoa(r.Y[p]), ftoa(depths[p]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAngles writes the track angle table.
func WriteAngles(w io.Writer, recs []gem.AngleRecord) error {
	cw := newWriter(w)
	for _, r := range recs {
		if err := cw.Write([]string{utoa(r.Event), ftoa(r.Polar), ftoa(r.AngleX), ftoa(r.AngleY)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCorrected writes every hit of set, three rows per event.
func WriteCorrected(w io.Writer, set *gem.EventSet) error {
	cw := newWriter(w)
	for i := 0; i < set.Len(); i++ {
		id, t := set.At(i)
		for p, h := range t {
			err := cw.Write([]string{
				utoa(id), strconv.Itoa(p),
				ftoa(h.X), ftoa(h.Y), ftoa(h.XCharge), ftoa(h.YCharge),
				utoa(h.HADC), utoa(h.LADC), utoa(h.Run), utoa(h.HV),
			})
			if err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates name on fsys and fills it with write.
func WriteFile(fsys fsutil.FileSystem, name string, write func(io.Writer) error) (err error) {
	f, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", name, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

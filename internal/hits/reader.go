// Package hits reads the per-plane GEM hit files and merges them into
// complete three-plane tracks.
//
// Each plane file holds one hit per line:
//
//	event x y x_charge y_charge hadc ladc run hv
//
// with x and y given in readout strips. Lines are in ascending event order.
package hits

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// DefaultStripPitch converts readout strips to millimetres.
const DefaultStripPitch = 0.390625

const numFields = 9

// Record is one parsed line of a plane file.
type Record struct {
	Event uint32
	Hit   gem.Hit
}

// ParseLine parses a single hit line, scaling x and y by pitch.
func ParseLine(line string, pitch float64) (Record, error) {
	f := strings.Fields(line)
	if len(f) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(f))
	}

	event, err := strconv.ParseUint(f[0], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("event: %w", err)
	}

	var floats [4]float64
	for i, name := range [4]string{"x", "y", "x_charge", "y_charge"} {
		if floats[i], err = strconv.ParseFloat(f[1+i], 64); err != nil {
			return Record{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	var ints [4]uint16
	for i, name := range [4]string{"hadc", "ladc", "run", "hv"} {
		v, err := strconv.ParseUint(f[5+i], 10, 16)
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", name, err)
		}
		ints[i] = uint16(v)
	}

	return Record{
		Event: uint32(event),
		Hit: gem.Hit{
			X:       floats[0] * pitch,
			Y:       floats[1] * pitch,
			XCharge: floats[2],
			YCharge: floats[3],
			HADC:    ints[0],
			LADC:    ints[1],
			Run:     ints[2],
			HV:      ints[3],
		},
	}, nil
}

// Reader yields the records of one plane file in order. Blank lines and lines
// starting with '#' are skipped. Event numbers must strictly increase.
type Reader struct {
	name  string
	pitch float64
	sc    *bufio.Scanner
	line  int
	last  uint32
	count int
}

// NewReader wraps r; name is used in error messages.
func NewReader(r io.Reader, name string, pitch float64) *Reader {
	return &Reader{name: name, pitch: pitch, sc: bufio.NewScanner(r)}
}

// Next returns the next record, or io.EOF once the input is exhausted.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		text := strings.TrimSpace(r.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		rec, err := ParseLine(text, r.pitch)
		if err != nil {
			return Record{}, fmt.Errorf("%s:%d: %w", r.name, r.line, err)
		}
		if r.count > 0 && rec.Event <= r.last {
			return Record{}, fmt.Errorf("%s:%d: event %d out of order after %d", r.name, r.line, rec.Event, r.last)
		}
		r.last = rec.Event
		r.count++
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return Record{}, fmt.Errorf("%s: %w", r.name, err)
	}
	return Record{}, io.EOF
}

// Count returns the number of records returned so far.
func (r *Reader) Count() int { return r.count }

// Name returns the name given to NewReader.
func (r *Reader) Name() string { return r.name }

package align

import (
	"sync"

	"github.com/samstevens127/MOLLER-tracking/internal/gem"
)

// Progress is a periodic snapshot of one optimizer run.
type Progress struct {
	Axis      gem.Axis
	Iteration int
	Gradient  float64
	Shift     float64
	Cost      float64
}

// Observer receives progress snapshots. Observe may be called concurrently
// from the x and y tasks.
type Observer interface {
	Observe(Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

// Observe calls f(p).
func (f ObserverFunc) Observe(p Progress) { f(p) }

// LogObserver writes progress to the Diag stream.
var LogObserver = ObserverFunc(func(p Progress) {
	Diagf("%s iter %4d: grad=%+.6e shift=%+.4f chi2=%.6f", p.Axis, p.Iteration, p.Gradient, p.Shift, p.Cost)
})

// Recorder keeps every observation for later charting.
type Recorder struct {
	mu      sync.Mutex
	history map[gem.Axis][]Progress
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{history: make(map[gem.Axis][]Progress)}
}

// Observe appends p to the history of its axis.
func (r *Recorder) Observe(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[p.Axis] = append(r.history[p.Axis], p)
}

// History returns a copy of the observations for axis in arrival order.
func (r *Recorder) History(axis gem.Axis) []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Progress, len(r.history[axis]))
	copy(out, r.history[axis])
	return out
}

// Observers fans a snapshot out to several observers.
type Observers []Observer

// Observe forwards p to every non-nil observer.
func (os Observers) Observe(p Progress) {
	for _, o := range os {
		if o != nil {
			o.Observe(p)
		}
	}
}

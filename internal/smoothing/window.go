// Package smoothing implements the stride-1 moving average applied to the
// raw cost stream.
package smoothing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultCapacity is the window length used when none is configured: one
// second of samples at the default 6 Hz analysis rate.
const DefaultCapacity = 6

// CapacityForRate derives the window capacity from the analysis rate and
// the window span in seconds. The result is at least 1.
func CapacityForRate(targetRate, windowSeconds float64) int {
	n := int(math.Round(targetRate * windowSeconds))
	if n < 1 {
		return 1
	}
	return n
}

// Window is a bounded FIFO of raw costs.
//
// No value is emitted until Warmup costs have been pushed. From then on
// every push emits the weighted mean of the costs currently held, divided
// by the weight actually accumulated, and drops the oldest entry once the
// window is full.
type Window struct {
	capacity int
	warmup   int
	weights  []float64

	buf    []float64
	pushed int
}

// NewWindow builds a window. warmup <= 0 means warmup == capacity. weights
// may be nil for a plain mean; otherwise it must have capacity entries, the
// first applying to the oldest cost.
func NewWindow(capacity, warmup int, weights []float64) (*Window, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("window capacity must be at least 1, got %d", capacity)
	}
	if warmup <= 0 {
		warmup = capacity
	}
	if weights != nil && len(weights) != capacity {
		return nil, fmt.Errorf("window weights: got %d entries, want %d", len(weights), capacity)
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("window weight %d must be non-negative, got %v", i, w)
		}
	}
	return &Window{
		capacity: capacity,
		warmup:   warmup,
		weights:  weights,
		buf:      make([]float64, 0, capacity),
	}, nil
}

// Push adds a raw cost. It returns the smoothed value and true once the
// warm-up is over.
func (w *Window) Push(c float64) (float64, bool) {
	if len(w.buf) == w.capacity {
		w.evict()
	}
	w.buf = append(w.buf, c)
	w.pushed++

	if w.pushed < w.warmup {
		return 0, false
	}

	var weights []float64
	if w.weights != nil {
		weights = w.weights[:len(w.buf)]
	}
	smoothed := stat.Mean(w.buf, weights)

	if len(w.buf) == w.capacity {
		w.evict()
	}
	return smoothed, true
}

func (w *Window) evict() {
	copy(w.buf, w.buf[1:])
	w.buf = w.buf[:len(w.buf)-1]
}

// Len returns the number of costs currently held.
func (w *Window) Len() int { return len(w.buf) }

// Capacity returns the configured capacity.
func (w *Window) Capacity() int { return w.capacity }

// Warm reports whether the warm-up phase is over.
func (w *Window) Warm() bool { return w.pushed >= w.warmup }

// Values returns a copy of the held costs, oldest first.
func (w *Window) Values() []float64 {
	return append([]float64(nil), w.buf...)
}

// Reset clears the window and restarts the warm-up.
func (w *Window) Reset() {
	w.buf = w.buf[:0]
	w.pushed = 0
}

package history

import (
	"fmt"
	"math"
)

// DefaultAlpha is the EMA smoothing factor used when none is configured.
const DefaultAlpha = 0.5

// Window is a fixed-capacity circular buffer of smoothed values. Every
// subSampleRate raw ingests are averaged, folded into the running EMA and
// committed as one stored point.
//
// Window is not safe for concurrent use; meter.Counter serializes access.
type Window struct {
	capacity      int
	subSampleRate int
	alpha         float64

	data   []int64
	cursor int // slot receiving the next commit

	pendingSum   int64
	pendingCount int
	ema          float64
}

// NewWindow creates an empty window.
func NewWindow(capacity, subSampleRate int, alpha float64) (*Window, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrConfiguration, capacity)
	}
	if subSampleRate <= 0 {
		return nil, fmt.Errorf("%w: sub-sample rate must be positive, got %d", ErrConfiguration, subSampleRate)
	}
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("%w: alpha must be in (0, 1], got %g", ErrConfiguration, alpha)
	}
	return &Window{
		capacity:      capacity,
		subSampleRate: subSampleRate,
		alpha:         alpha,
		data:          make([]int64, 0, capacity),
	}, nil
}

// Ingest adds one raw sample. Only the sample that completes a sub-sample
// window changes the stored history.
func (w *Window) Ingest(raw int64) {
	w.pendingSum += raw
	w.pendingCount++
	if w.pendingCount < w.subSampleRate {
		return
	}

	mean := float64(w.pendingSum) / float64(w.subSampleRate)
	w.ema = (1-w.alpha)*w.ema + w.alpha*mean
	v := int64(math.Round(w.ema))

	if len(w.data) < w.capacity {
		w.data = append(w.data, v)
	} else {
		w.data[w.cursor] = v
	}
	w.cursor = (w.cursor + 1) % w.capacity
	w.pendingSum = 0
	w.pendingCount = 0
}

// Lookback returns the steps-th most recent committed value, 0 being the newest.
func (w *Window) Lookback(steps int) (int64, error) {
	if steps < 0 || steps >= len(w.data) {
		return 0, fmt.Errorf("%w: lookback %d with %d values", ErrOutOfRange, steps, len(w.data))
	}
	return w.data[w.index(steps)], nil
}

// index maps a bounded lookback onto the storage slice.
func (w *Window) index(steps int) int {
	return (w.cursor - 1 - steps + 2*w.capacity) % w.capacity
}

// Size returns the number of committed values, capped at the capacity.
func (w *Window) Size() int {
	return len(w.data)
}

// Capacity returns the fixed buffer capacity.
func (w *Window) Capacity() int {
	return w.capacity
}

// SubSampleRate returns how many raw ingests make one committed value.
func (w *Window) SubSampleRate() int {
	return w.subSampleRate
}

// MaxOverWindow returns the largest value among the most recent
// min(window, Size()) commits, skipping the newest one so a fresh outlier
// does not rescale the axis on every redraw. A window of one or less, or a
// window holding only the newest commit, yields 0.
func (w *Window) MaxOverWindow(window int) int64 {
	n := len(w.data)
	if window < n {
		n = window
	}
	var best int64
	for i := 1; i < n; i++ {
		if v := w.data[w.index(i)]; v > best {
			best = v
		}
	}
	return best
}

// Values returns a copy of the committed history, newest first.
func (w *Window) Values() []int64 {
	out := make([]int64, len(w.data))
	for i := range out {
		out[i] = w.data[w.index(i)]
	}
	return out
}

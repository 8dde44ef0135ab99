package history

import "fmt"

// WindowState is the serializable form of a Window.
type WindowState struct {
	Capacity      int     `json:"capacity"`
	SubSampleRate int     `json:"sub_sample_rate"`
	Alpha         float64 `json:"alpha"`
	// Values holds the committed history, oldest first.
	Values       []int64 `json:"values"`
	PendingSum   int64   `json:"pending_sum"`
	PendingCount int     `json:"pending_count"`
	EMA          float64 `json:"ema"`
}

// State captures everything needed to rebuild the window.
func (w *Window) State() WindowState {
	newest := w.Values()
	values := make([]int64, len(newest))
	for i, v := range newest {
		values[len(newest)-1-i] = v
	}
	return WindowState{
		Capacity:      w.capacity,
		SubSampleRate: w.subSampleRate,
		Alpha:         w.alpha,
		Values:        values,
		PendingSum:    w.pendingSum,
		PendingCount:  w.pendingCount,
		EMA:           w.ema,
	}
}

// RestoreWindow rebuilds a window from a captured state. The restored window
// answers every query exactly as the original did.
func RestoreWindow(s WindowState) (*Window, error) {
	w, err := NewWindow(s.Capacity, s.SubSampleRate, s.Alpha)
	if err != nil {
		return nil, err
	}
	if len(s.Values) > s.Capacity {
		return nil, fmt.Errorf("%w: %d values exceed capacity %d", ErrConfiguration, len(s.Values), s.Capacity)
	}
	if s.PendingCount < 0 || s.PendingCount >= s.SubSampleRate {
		return nil, fmt.Errorf("%w: pending count %d outside [0, %d)", ErrConfiguration, s.PendingCount, s.SubSampleRate)
	}
	w.data = append(w.data, s.Values...)
	w.cursor = len(w.data) % w.capacity
	w.pendingSum = s.PendingSum
	w.pendingCount = s.PendingCount
	w.ema = s.EMA
	return w, nil
}

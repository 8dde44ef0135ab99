// Package meter wraps per-signal histories into lock-protected counters and
// derives the view parameters (axis ranges, timescale) a renderer needs.
package meter

import (
	"fmt"
	"sync"

	"gitlab.com/tinyland/lab/net-meter/history"
)

// Standard counter labels.
const (
	LabelCellIn  = "cell-in"
	LabelCellOut = "cell-out"
	LabelWifiIn  = "wifi-in"
	LabelWifiOut = "wifi-out"
	LabelCPU     = "cpu"
)

// Counter is one tracked signal: its multi-resolution history plus a running
// total that can be reset independently of the history.
//
// A whole Ingest is atomic with respect to every read method.
type Counter struct {
	label string

	mu     sync.RWMutex
	series *history.Series
	total  int64
}

// NewCounter creates a counter with an empty history.
func NewCounter(label string, cfg history.SeriesConfig) (*Counter, error) {
	s, err := history.NewSeries(cfg)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", label, err)
	}
	return &Counter{label: label, series: s}, nil
}

// RestoreCounter creates a counter from persisted state.
func RestoreCounter(st CounterState) (*Counter, error) {
	s, err := history.RestoreSeries(st.Series)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", st.Label, err)
	}
	return &Counter{label: st.Label, series: s, total: st.Total}, nil
}

// Label returns the counter's semantic tag, e.g. "wifi-in".
func (c *Counter) Label() string {
	return c.label
}

// Ingest records one raw sample.
func (c *Counter) Ingest(raw int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series.Ingest(raw)
	c.total += raw
}

// Reset zeroes the running total. History is never cleared.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = 0
}

// Total returns the sum of raw samples since creation or the last Reset.
func (c *Counter) Total() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Query returns the history at a resolution, newest first.
func (c *Counter) Query(code int) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series.Query(code)
}

// Current returns the newest committed value at a resolution.
func (c *Counter) Current(code int) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.series.Current(code)
}

// Series returns a read-only, locked view of the counter's history.
func (c *Counter) Series() SeriesView {
	return SeriesView{c: c}
}

// Snapshot copies everything a renderer needs about one resolution.
func (c *Counter) Snapshot(code int) (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, err := c.series.Resolve(code)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Label:    c.label,
		Total:    c.total,
		Capacity: w.Capacity(),
		Values:   w.Values(),
	}, nil
}

// State captures the counter for persistence.
func (c *Counter) State() CounterState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CounterState{
		Label:  c.label,
		Total:  c.total,
		Series: c.series.State(),
	}
}

// Snapshot is an owned copy of one counter at one resolution.
type Snapshot struct {
	Label    string  `json:"label"`
	Total    int64   `json:"total"`
	Capacity int     `json:"capacity"`
	Values   []int64 `json:"values"` // newest first
}

// CounterState is the persisted form of a Counter.
type CounterState struct {
	Label  string              `json:"label"`
	Total  int64               `json:"total"`
	Series history.SeriesState `json:"series"`
}

// SeriesView exposes the read side of a counter's history.
type SeriesView struct {
	c *Counter
}

// Size returns the number of values stored at a resolution.
func (v SeriesView) Size(code int) (int, error) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	w, err := v.c.series.Resolve(code)
	if err != nil {
		return 0, err
	}
	return w.Size(), nil
}

// Capacity returns the buffer capacity at a resolution.
func (v SeriesView) Capacity(code int) (int, error) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	w, err := v.c.series.Resolve(code)
	if err != nil {
		return 0, err
	}
	return w.Capacity(), nil
}

// Lookback returns the steps-th most recent value at a resolution.
func (v SeriesView) Lookback(code, steps int) (int64, error) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	w, err := v.c.series.Resolve(code)
	if err != nil {
		return 0, err
	}
	return w.Lookback(steps)
}

// MaxOverWindow returns the resolved window's recent maximum, newest excluded.
func (v SeriesView) MaxOverWindow(code, window int) (int64, error) {
	v.c.mu.RLock()
	defer v.c.mu.RUnlock()
	w, err := v.c.series.Resolve(code)
	if err != nil {
		return 0, err
	}
	return w.MaxOverWindow(window), nil
}

// Query returns the history at a resolution, newest first.
func (v SeriesView) Query(code int) ([]int64, error) {
	return v.c.Query(code)
}

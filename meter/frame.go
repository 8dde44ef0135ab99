package meter

import "fmt"

// Frame is everything needed to draw one graph: the network counters on a
// shared byte axis and an optional percentage counter on a 0-100 axis.
type Frame struct {
	Resolution int        `json:"resolution"`
	Banner     string     `json:"banner"`
	XRange     int        `json:"x_range"`
	YRange     int64      `json:"y_range"`
	Counters   []Snapshot `json:"counters"`
	Percent    *Snapshot  `json:"percent,omitempty"`
}

// BuildFrame snapshots counters and percent at a resolution. percent may be nil.
func BuildFrame(code int, counters []*Counter, percent *Counter) (Frame, error) {
	sc := NewScaler(counters...)
	x, err := sc.XRange(code)
	if err != nil {
		return Frame{}, err
	}
	y, err := sc.YRange(code)
	if err != nil {
		return Frame{}, err
	}

	f := Frame{
		Resolution: code,
		Banner:     Banner(code),
		XRange:     x,
		YRange:     y,
		Counters:   make([]Snapshot, 0, len(counters)),
	}
	for _, c := range counters {
		snap, err := c.Snapshot(code)
		if err != nil {
			return Frame{}, fmt.Errorf("counter %s: %w", c.Label(), err)
		}
		f.Counters = append(f.Counters, snap)
	}
	if percent != nil {
		snap, err := percent.Snapshot(code)
		if err != nil {
			return Frame{}, fmt.Errorf("counter %s: %w", percent.Label(), err)
		}
		f.Percent = &snap
	}
	return f, nil
}

// Visible returns the part of a snapshot that fits the frame's x range,
// newest first.
func (f Frame) Visible(s Snapshot) []int64 {
	if len(s.Values) > f.XRange {
		return s.Values[:f.XRange]
	}
	return s.Values
}

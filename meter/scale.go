package meter

import (
	"errors"
	"fmt"
)

// ErrNoCounters is returned when a view is requested over an empty counter set.
var ErrNoCounters = errors.New("meter: no counters")

const (
	// minYRange is the smallest y-axis span ever produced.
	minYRange = 10

	// PercentRange is the fixed y-axis span of percentage counters such as CPU.
	PercentRange = 100
)

// Scaler derives axis bounds from a set of counters that share a resolution.
// The first counter is the reference for the x axis. Scaler never mutates
// the counters.
type Scaler struct {
	counters []*Counter
}

// NewScaler creates a scaler over counters.
func NewScaler(counters ...*Counter) Scaler {
	return Scaler{counters: counters}
}

// XRange returns the number of points shown at a resolution: the reference
// buffer's capacity, halved for the even (half-density) codes.
func (s Scaler) XRange(code int) (int, error) {
	if len(s.counters) == 0 {
		return 0, ErrNoCounters
	}
	x, err := s.counters[0].Series().Capacity(code)
	if err != nil {
		return 0, err
	}
	if code%2 == 0 {
		x /= 2
	}
	return x, nil
}

// YRange returns a rounded y-axis span with headroom: the largest recent
// value over all counters, plus 10%, bumped to the next multiple of 10.
func (s Scaler) YRange(code int) (int64, error) {
	x, err := s.XRange(code)
	if err != nil {
		return 0, err
	}
	y := int64(minYRange)
	for _, c := range s.counters {
		m, err := c.Series().MaxOverWindow(code, x)
		if err != nil {
			return 0, fmt.Errorf("counter %s: %w", c.Label(), err)
		}
		if m > y {
			y = m
		}
	}
	y += y / 10
	return (y/10 + 1) * 10, nil
}

// Projection maps data coordinates onto a width x height pixel area with a
// small margin on every side. Y grows upwards in data space.
type Projection struct {
	Width  int
	Height int
	XRange int
	YRange int64

	xScale float64
	yScale float64
}

// projectionMargin is the blank border kept around the plot, in pixels.
const projectionMargin = 5

// Projection returns the mapping for resolution code onto a width x height
// area, using the scaler's x and y ranges.
func (s Scaler) Projection(code, width, height int) (Projection, error) {
	x, err := s.XRange(code)
	if err != nil {
		return Projection{}, err
	}
	y, err := s.YRange(code)
	if err != nil {
		return Projection{}, err
	}
	return NewProjection(width, height, x, y), nil
}

// NewProjection creates a projection. Ranges below 1 are treated as 1.
func NewProjection(width, height, xRange int, yRange int64) Projection {
	if xRange < 1 {
		xRange = 1
	}
	if yRange < 1 {
		yRange = 1
	}
	return Projection{
		Width:  width,
		Height: height,
		XRange: xRange,
		YRange: yRange,
		xScale: float64(width-2*projectionMargin) / float64(xRange),
		yScale: float64(height-2*projectionMargin) / float64(yRange),
	}
}

// X returns the pixel column for a data x coordinate.
func (p Projection) X(x int) float64 {
	return float64(x)*p.xScale + projectionMargin
}

// Y returns the pixel row for a data value.
func (p Projection) Y(v int64) float64 {
	return float64(p.Height) - float64(v)*p.yScale - projectionMargin
}

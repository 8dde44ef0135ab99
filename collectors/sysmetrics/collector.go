// Package sysmetrics samples local CPU load from /proc/stat.
package sysmetrics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

const (
	// samplerName is the unique identifier for this sampler.
	samplerName = "sysmetrics"

	// LabelCPU is the counter label this sampler produces.
	LabelCPU = meter.LabelCPU
)

// errNoCPULine is returned when /proc/stat lacks the aggregate cpu line.
var errNoCPULine = errors.New("sysmetrics: cpu line not found in /proc/stat")

// CPUSampler implements collectors.Sampler for CPU busy percent.
// Each sample is the busy share of all CPU ticks since the previous sample.
type CPUSampler struct {
	logger *slog.Logger

	// prevIdle and prevTotal track the last CPU sample for delta computation.
	prevIdle  uint64
	prevTotal uint64

	// Overridable file opener for testing.
	openProcStat func() (io.ReadCloser, error)
}

// NewCPUSampler creates a CPUSampler.
// If logger is nil, a no-op logger is used.
func NewCPUSampler(logger *slog.Logger) *CPUSampler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &CPUSampler{
		logger: logger,
		openProcStat: func() (io.ReadCloser, error) {
			return os.Open("/proc/stat")
		},
	}
}

// Name returns the sampler's unique identifier.
func (c *CPUSampler) Name() string {
	return samplerName
}

// Labels returns the single cpu label.
func (c *CPUSampler) Labels() []string {
	return []string{LabelCPU}
}

// Sample reads /proc/stat and returns CPU usage as a whole percentage.
// The first call seeds the tick counters and reports 0.
func (c *CPUSampler) Sample(ctx context.Context) ([]collectors.Reading, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	pct, err := c.readCPU()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("cpu sampled", "cpu", fmt.Sprintf("%.1f%%", pct))

	return []collectors.Reading{{Label: LabelCPU, Value: int64(math.Round(pct))}}, nil
}

// readCPU reads /proc/stat to compute CPU usage as a percentage.
// It calculates the delta between the current and previous readings.
func (c *CPUSampler) readCPU() (float64, error) {
	f, err := c.openProcStat()
	if err != nil {
		return 0, fmt.Errorf("sysmetrics: open /proc/stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			return 0, errors.New("sysmetrics: /proc/stat cpu line too short")
		}

		// Fields: cpu user nice system idle iowait irq softirq steal ...
		var total uint64
		var idle uint64
		for i := 1; i < len(fields); i++ {
			val, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("sysmetrics: parse /proc/stat field %d: %w", i, err)
			}
			total += val
			if i == 4 { // idle field
				idle = val
			}
		}

		// First reading: seed counters, return 0.
		if c.prevTotal == 0 {
			c.prevIdle = idle
			c.prevTotal = total
			return 0, nil
		}

		// Counters went backwards (e.g. CPU hotplug); reseed.
		if total < c.prevTotal || idle < c.prevIdle {
			c.prevIdle = idle
			c.prevTotal = total
			return 0, nil
		}

		deltaTotal := total - c.prevTotal
		deltaIdle := idle - c.prevIdle

		c.prevIdle = idle
		c.prevTotal = total

		if deltaTotal == 0 {
			return 0, nil
		}

		cpuPct := (1.0 - float64(deltaIdle)/float64(deltaTotal)) * 100.0
		return math.Max(0, math.Min(100, cpuPct)), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("sysmetrics: scan /proc/stat: %w", err)
	}

	return 0, errNoCPULine
}

// Compile-time interface compliance check.
var _ collectors.Sampler = (*CPUSampler)(nil)

// Package procs ranks processes by their share of all CPU time between two
// samples, read from /proc/<pid>/stat and /proc/stat.
package procs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/prometheus/procfs"
)

// DefaultLimit is the number of tasks returned when Config.Limit is unset.
const DefaultLimit = 10

// Task is one process and its CPU share over the last sample period.
type Task struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	// Permille is the share of all CPU time in tenths of a percent.
	Permille int64 `json:"permille"`
}

// Percent returns the share as a percentage with one decimal of precision.
func (t Task) Percent() float64 {
	return float64(t.Permille) / 10
}

// Config configures a Top sampler.
type Config struct {
	// ProcPath is the procfs mount point.
	ProcPath string
	// Limit caps the number of tasks returned.
	Limit int
}

// DefaultConfig returns the stock procfs path and limit.
func DefaultConfig() Config {
	return Config{ProcPath: procfs.DefaultMountPoint, Limit: DefaultLimit}
}

// Top samples per-process CPU time. The first Sample only seeds the
// baseline; later ones report usage since the previous call.
type Top struct {
	cfg    Config
	logger *slog.Logger

	seeded    bool
	prevTotal float64
	prevTasks map[int]float64
}

// New creates a Top. If logger is nil, a no-op logger is used.
func New(cfg Config, logger *slog.Logger) *Top {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ProcPath == "" {
		cfg.ProcPath = procfs.DefaultMountPoint
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Top{cfg: cfg, logger: logger}
}

// Sample returns the busiest processes since the previous call, highest
// share first. Processes with no measurable usage are left out, so the
// seeding call and an idle system both return an empty list.
func (t *Top) Sample(ctx context.Context) ([]Task, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fs, err := procfs.NewFS(t.cfg.ProcPath)
	if err != nil {
		return nil, fmt.Errorf("procs: open procfs %s: %w", t.cfg.ProcPath, err)
	}
	stat, err := fs.Stat()
	if err != nil {
		return nil, fmt.Errorf("procs: read stat: %w", err)
	}
	all, err := fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("procs: list processes: %w", err)
	}

	total := cpuSeconds(stat.CPUTotal)
	current := make(map[int]float64, len(all))
	names := make(map[int]string, len(all))
	for _, p := range all {
		ps, err := p.Stat()
		if err != nil {
			// Exited between listing and reading.
			continue
		}
		current[p.PID] = ps.CPUTime()
		names[p.PID] = ps.Comm
	}

	prev, prevTotal, seeded := t.prevTasks, t.prevTotal, t.seeded
	t.prevTasks, t.prevTotal, t.seeded = current, total, true

	elapsed := total - prevTotal
	if !seeded || elapsed <= 0 {
		return nil, nil
	}

	var tasks []Task
	for pid, used := range current {
		before, ok := prev[pid]
		if !ok || used < before {
			continue
		}
		permille := int64(math.Round((used - before) / elapsed * 1000))
		if permille <= 0 {
			continue
		}
		tasks = append(tasks, Task{PID: pid, Name: names[pid], Permille: permille})
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Permille != tasks[j].Permille {
			return tasks[i].Permille > tasks[j].Permille
		}
		return tasks[i].PID < tasks[j].PID
	})
	if len(tasks) > t.cfg.Limit {
		tasks = tasks[:t.cfg.Limit]
	}

	t.logger.Debug("procs sampled", "processes", len(current), "busy", len(tasks))
	return tasks, nil
}

// cpuSeconds sums every accounted CPU state. Guest time is already part of
// user time.
func cpuSeconds(s procfs.CPUStat) float64 {
	return s.User + s.Nice + s.System + s.Idle + s.Iowait + s.IRQ + s.SoftIRQ + s.Steal
}

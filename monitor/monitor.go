// Package monitor drives the sampling loop: every tick it polls the
// registered samplers, feeds each reading into its counter and evaluates the
// alert rules. It is the only writer of counter history in a process.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/collectors/retry"
	"gitlab.com/tinyland/lab/net-meter/history"
	"gitlab.com/tinyland/lab/net-meter/meter"
	"gitlab.com/tinyland/lab/net-meter/status"
)

// NetworkLabels are the byte counters sharing one y axis, in drawing order.
// The first one is the reference counter for x range and timescale.
var NetworkLabels = []string{
	meter.LabelCellIn,
	meter.LabelCellOut,
	meter.LabelWifiIn,
	meter.LabelWifiOut,
}

// Config configures a Monitor.
type Config struct {
	Interval time.Duration
	Series   history.SeriesConfig
	Rules    []status.Rule
	Logger   *slog.Logger
	// AfterTick, if set, runs on the loop goroutine after every tick.
	AfterTick func(Report)
}

// Report summarizes one tick.
type Report struct {
	Seq      uint64
	At       time.Time
	Status   status.SystemStatus
	Samplers map[string]string // sampler name -> "ok" or last error
}

// Monitor owns the counters and the sampler registry.
type Monitor struct {
	cfg      Config
	logger   *slog.Logger
	registry *collectors.Registry

	// mu guards the counter pointers (swapped by Restore), the evaluator and
	// the bookkeeping below. Counter contents have their own locks.
	mu        sync.RWMutex
	network   []*meter.Counter
	percent   *meter.Counter
	byLabel   map[string]*meter.Counter
	evaluator *status.Evaluator
	seq       uint64
	lastTick  time.Time
	status    status.SystemStatus
	samplers  map[string]string
}

// New creates a Monitor with empty counters for every network label and cpu.
func New(cfg Config, registry *collectors.Registry) (*Monitor, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("monitor: interval must be positive, got %s", cfg.Interval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if registry == nil {
		registry = collectors.NewRegistry()
	}

	m := &Monitor{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		byLabel:   make(map[string]*meter.Counter),
		evaluator: status.NewEvaluator(cfg.Rules, logger),
		samplers:  make(map[string]string),
		status:    status.SystemStatus{Overall: status.LevelUnknown},
	}

	for _, label := range NetworkLabels {
		c, err := meter.NewCounter(label, cfg.Series)
		if err != nil {
			return nil, fmt.Errorf("monitor: %w", err)
		}
		m.network = append(m.network, c)
		m.byLabel[label] = c
	}
	cpu, err := meter.NewCounter(meter.LabelCPU, cfg.Series)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	m.percent = cpu
	m.byLabel[meter.LabelCPU] = cpu

	return m, nil
}

// Interval returns the tick interval.
func (m *Monitor) Interval() time.Duration {
	return m.cfg.Interval
}

// Counter returns the counter for a label.
func (m *Monitor) Counter(label string) (*meter.Counter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byLabel[label]
	return c, ok
}

// Network returns the byte counters in drawing order.
func (m *Monitor) Network() []*meter.Counter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*meter.Counter, len(m.network))
	copy(out, m.network)
	return out
}

// Percent returns the cpu counter.
func (m *Monitor) Percent() *meter.Counter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.percent
}

// Ref returns the reference counter used for x range and timescale.
func (m *Monitor) Ref() *meter.Counter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.network[0]
}

// Prime takes one throwaway sample from every sampler so the first real tick
// reports a delta instead of a cumulative counter. Errors are logged.
func (m *Monitor) Prime(ctx context.Context) {
	for _, s := range m.registry.All() {
		if _, err := s.Sample(ctx); err != nil {
			m.logger.Warn("prime failed", "sampler", s.Name(), "error", err)
		}
	}
}

type sampleResult struct {
	name     string
	readings []collectors.Reading
	err      error
}

// Tick samples every sampler concurrently and ingests the readings in
// registry order. A failed sampler contributes nothing this tick; its
// counters simply do not advance.
func (m *Monitor) Tick(ctx context.Context) Report {
	start := time.Now()
	all := m.registry.All()
	results := make([]sampleResult, len(all))

	var wg sync.WaitGroup
	for i, s := range all {
		wg.Add(1)
		go func(i int, s collectors.Sampler) {
			defer wg.Done()
			readings, err := s.Sample(ctx)
			results[i] = sampleResult{name: s.Name(), readings: readings, err: err}
		}(i, s)
	}
	wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range results {
		if r.err != nil {
			if errors.Is(r.err, retry.ErrCircuitOpen) {
				m.logger.Debug("sampler skipped", "sampler", r.name, "error", r.err)
			} else {
				m.logger.Warn("sampler failed", "sampler", r.name, "error", r.err)
			}
			m.samplers[r.name] = r.err.Error()
			continue
		}
		m.samplers[r.name] = "ok"
		for _, rd := range r.readings {
			c, ok := m.byLabel[rd.Label]
			if !ok {
				m.logger.Debug("reading for unknown counter dropped", "sampler", r.name, "label", rd.Label)
				continue
			}
			c.Ingest(rd.Value)
		}
	}

	values := make(map[string]int64, len(m.byLabel))
	for label, c := range m.byLabel {
		if v, err := c.Current(0); err == nil {
			values[label] = v
		}
	}
	m.status = m.evaluator.Evaluate(values)
	m.seq++
	m.lastTick = start

	m.logger.Debug("tick complete",
		"seq", m.seq,
		"status", m.status.Overall.String(),
		"duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
	)

	return m.reportLocked()
}

func (m *Monitor) reportLocked() Report {
	samplers := make(map[string]string, len(m.samplers))
	for k, v := range m.samplers {
		samplers[k] = v
	}
	return Report{
		Seq:      m.seq,
		At:       m.lastTick,
		Status:   m.status,
		Samplers: samplers,
	}
}

// Run primes the samplers, then ticks at the configured interval until ctx
// is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.Prime(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", "ticks", m.Ticks())
			return ctx.Err()
		case <-ticker.C:
			r := m.Tick(ctx)
			if m.cfg.AfterTick != nil {
				m.cfg.AfterTick(r)
			}
		}
	}
}

// Ticks returns the number of completed ticks.
func (m *Monitor) Ticks() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// Status returns the alert status of the most recent tick.
func (m *Monitor) Status() status.SystemStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Report returns the summary of the most recent tick.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reportLocked()
}

// Reset zeroes every running total and clears alert hit counts. History is
// kept.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byLabel {
		c.Reset()
	}
	m.evaluator.Reset()
	m.logger.Info("totals reset")
}

// Frame snapshots every counter at a resolution.
func (m *Monitor) Frame(code int) (meter.Frame, error) {
	m.mu.RLock()
	network, percent := m.network, m.percent
	m.mu.RUnlock()
	return meter.BuildFrame(code, network, percent)
}

// State captures every counter for persistence.
func (m *Monitor) State() []meter.CounterState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]meter.CounterState, 0, len(m.network)+1)
	for _, c := range m.network {
		out = append(out, c.State())
	}
	out = append(out, m.percent.State())
	return out
}

// Restore replaces counters with persisted ones. States for unknown labels,
// or sized for a different history configuration, are skipped with a warning
// so a config change starts that counter fresh. It returns how many counters
// were restored.
func (m *Monitor) Restore(states []meter.CounterState) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	network := make([]*meter.Counter, len(m.network))
	copy(network, m.network)

	restored := 0
	for _, st := range states {
		if _, ok := m.byLabel[st.Label]; !ok {
			m.logger.Warn("restore: unknown counter", "label", st.Label)
			continue
		}
		if !st.Series.Matches(m.cfg.Series) {
			m.logger.Warn("restore: history sized for another configuration, starting fresh", "label", st.Label)
			continue
		}
		c, err := meter.RestoreCounter(st)
		if err != nil {
			m.logger.Warn("restore: invalid state", "label", st.Label, "error", err)
			continue
		}
		m.byLabel[st.Label] = c
		if st.Label == meter.LabelCPU {
			m.percent = c
		}
		for i, n := range network {
			if n.Label() == st.Label {
				network[i] = c
			}
		}
		restored++
	}
	m.network = network
	return restored
}

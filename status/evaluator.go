// Package status turns counter values into alert levels.
package status

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Level represents alert severity.
type Level int

const (
	LevelHealthy  Level = iota // Below threshold
	LevelWarning               // Threshold crossed, tolerance left
	LevelCritical              // Tolerance exhausted
	LevelUnknown               // No data yet
)

// String returns the human-readable name for a Level.
func (l Level) String() string {
	switch l {
	case LevelHealthy:
		return "healthy"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// levelSeverity returns the sort order for levels. Higher is worse.
// Critical > Warning > Unknown > Healthy.
func levelSeverity(l Level) int {
	switch l {
	case LevelUnknown:
		return 1
	case LevelWarning:
		return 2
	case LevelCritical:
		return 3
	default:
		return 0
	}
}

// worstLevel returns whichever Level is more severe.
func worstLevel(a, b Level) Level {
	if levelSeverity(a) >= levelSeverity(b) {
		return a
	}
	return b
}

// Rule watches one counter. Every evaluation whose value exceeds Threshold is
// a hit; more than MaxHits hits is critical.
type Rule struct {
	Counter   string
	Threshold int64
	MaxHits   int
}

// Alert is the evaluation result for a single rule.
type Alert struct {
	Counter string
	Level   Level
	Hits    int
	Value   int64
	Reason  string
}

// SystemStatus is the aggregate evaluation result.
type SystemStatus struct {
	Overall     Level
	Alerts      []Alert
	EvaluatedAt time.Time
}

// Evaluator accumulates hits per rule across ticks. It is not safe for
// concurrent use; the monitor loop owns it.
type Evaluator struct {
	rules  []Rule
	hits   []int
	fired  []bool
	logger *slog.Logger
	now    func() time.Time
}

// NewEvaluator creates an Evaluator for rules. A nil logger discards output.
func NewEvaluator(rules []Rule, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Evaluator{
		rules:  rs,
		hits:   make([]int, len(rs)),
		fired:  make([]bool, len(rs)),
		logger: logger,
		now:    time.Now,
	}
}

// Rules returns a copy of the configured rules.
func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate scores every rule against values, keyed by counter label. A rule
// whose counter is absent is unknown and does not count a hit. The first
// transition of a rule to critical is logged once until Reset.
func (e *Evaluator) Evaluate(values map[string]int64) SystemStatus {
	st := SystemStatus{
		Overall:     LevelHealthy,
		Alerts:      make([]Alert, 0, len(e.rules)),
		EvaluatedAt: e.now(),
	}

	for i, r := range e.rules {
		a := Alert{Counter: r.Counter}
		v, ok := values[r.Counter]
		if !ok {
			a.Level = LevelUnknown
			a.Hits = e.hits[i]
			a.Reason = "no data"
			st.Alerts = append(st.Alerts, a)
			st.Overall = worstLevel(st.Overall, a.Level)
			continue
		}

		a.Value = v
		if v > r.Threshold {
			e.hits[i]++
		}
		a.Hits = e.hits[i]

		switch {
		case a.Hits > r.MaxHits:
			a.Level = LevelCritical
			a.Reason = fmt.Sprintf("%s above %d for %d ticks", r.Counter, r.Threshold, a.Hits)
			if !e.fired[i] {
				e.fired[i] = true
				e.logger.Warn("alert fired",
					"counter", r.Counter,
					"threshold", r.Threshold,
					"value", v,
					"hits", a.Hits,
				)
			}
		case a.Hits > 0:
			a.Level = LevelWarning
			a.Reason = fmt.Sprintf("%s above %d on %d of %d tolerated ticks", r.Counter, r.Threshold, a.Hits, r.MaxHits)
		default:
			a.Level = LevelHealthy
			a.Reason = "ok"
		}

		st.Alerts = append(st.Alerts, a)
		st.Overall = worstLevel(st.Overall, a.Level)
	}

	return st
}

// Reset clears all hit counts.
func (e *Evaluator) Reset() {
	for i := range e.hits {
		e.hits[i] = 0
		e.fired[i] = false
	}
}

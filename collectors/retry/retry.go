// Package retry provides a circuit breaker that wraps samplers to handle
// persistent platform failures. While the circuit is open the sampler is not
// called at all and the tick ingests nothing, instead of hammering a broken
// /proc reader every few seconds.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/net-meter/collectors"
)

// Compile-time check: CircuitBreaker satisfies the Sampler interface.
var _ collectors.Sampler = (*CircuitBreaker)(nil)

// ErrCircuitOpen is returned by Sample while the circuit is open.
var ErrCircuitOpen = errors.New("retry: circuit open")

// State represents the circuit breaker state.
type State int

const (
	// StateClosed is normal operation; samples pass through to the sampler.
	StateClosed State = iota
	// StateOpen means failures exceeded the threshold; samples are skipped.
	StateOpen
	// StateHalfOpen is a probe state testing whether the sampler has recovered.
	StateHalfOpen
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config configures the circuit breaker behavior.
type Config struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int
	// ResetTimeout is the initial wait duration before transitioning from Open to HalfOpen.
	ResetTimeout time.Duration
	// MaxResetTimeout caps the exponential backoff.
	MaxResetTimeout time.Duration
	// BackoffMultiplier is the factor by which ResetTimeout increases on each re-open.
	BackoffMultiplier float64
	// Logger for circuit breaker events. Nil is safe (a discard logger is used).
	Logger *slog.Logger
	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults for a 5 second sampling tick.
func DefaultConfig() Config {
	return Config{
		MaxFailures:       3,
		ResetTimeout:      30 * time.Second,
		MaxResetTimeout:   10 * time.Minute,
		BackoffMultiplier: 2.0,
	}
}

// Stats holds circuit breaker statistics for external inspection.
type Stats struct {
	State            State
	ConsecutiveFails int
	TotalFailures    int
	TotalSuccesses   int
	CurrentTimeout   time.Duration
	ConsecutiveSkips int
}

// CircuitBreaker wraps a collectors.Sampler with failure tracking and
// automatic circuit opening/closing.
type CircuitBreaker struct {
	sampler collectors.Sampler
	config  Config
	logger  *slog.Logger
	now     func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	lastFailure      time.Time
	currentTimeout   time.Duration
	totalFailures    int
	totalSuccesses   int
	consecutiveSkips int
}

// NewCircuitBreaker wraps a sampler with circuit breaker logic.
func NewCircuitBreaker(s collectors.Sampler, cfg Config) *CircuitBreaker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		sampler:        s,
		config:         cfg,
		logger:         logger,
		now:            now,
		state:          StateClosed,
		currentTimeout: cfg.ResetTimeout,
	}
}

// Name delegates to the wrapped sampler.
func (cb *CircuitBreaker) Name() string {
	return cb.sampler.Name()
}

// Labels delegates to the wrapped sampler.
func (cb *CircuitBreaker) Labels() []string {
	return cb.sampler.Labels()
}

// Sample checks the circuit state and either calls the wrapped sampler or
// returns ErrCircuitOpen without touching it.
func (cb *CircuitBreaker) Sample(ctx context.Context) ([]collectors.Reading, error) {
	cb.mu.Lock()

	if cb.state == StateOpen {
		elapsed := cb.now().Sub(cb.lastFailure)
		if elapsed < cb.currentTimeout {
			cb.consecutiveSkips++
			remaining := cb.currentTimeout - elapsed
			cb.mu.Unlock()
			return nil, fmt.Errorf("%w for %s (retry in %s)", ErrCircuitOpen, cb.sampler.Name(), remaining.Truncate(time.Second))
		}
		cb.state = StateHalfOpen
		cb.logger.Info("circuit breaker transitioning to half-open",
			"sampler", cb.sampler.Name(),
		)
	}
	cb.mu.Unlock()

	readings, err := cb.sampler.Sample(ctx)
	if err != nil {
		cb.recordFailure()
		return nil, err
	}
	cb.recordSuccess()
	return readings, nil
}

// recordFailure counts a failure, opening the circuit at the threshold or
// re-opening it with a longer timeout after a failed probe.
func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.totalFailures++
	cb.lastFailure = cb.now()

	switch {
	case cb.state == StateHalfOpen:
		cb.currentTimeout = time.Duration(float64(cb.currentTimeout) * cb.config.BackoffMultiplier)
		if cb.currentTimeout > cb.config.MaxResetTimeout {
			cb.currentTimeout = cb.config.MaxResetTimeout
		}
		cb.state = StateOpen
		cb.logger.Warn("circuit breaker re-opened after half-open failure",
			"sampler", cb.sampler.Name(),
			"failures", cb.failures,
			"next_timeout", cb.currentTimeout,
		)
	case cb.failures >= cb.config.MaxFailures:
		cb.state = StateOpen
		cb.currentTimeout = cb.config.ResetTimeout
		cb.logger.Warn("circuit breaker opened",
			"sampler", cb.sampler.Name(),
			"failures", cb.failures,
			"timeout", cb.currentTimeout,
		)
	}
}

// recordSuccess closes the circuit and clears the consecutive counters.
func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.logger.Info("circuit breaker closed after successful probe",
			"sampler", cb.sampler.Name(),
		)
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.consecutiveSkips = 0
	cb.totalSuccesses++
	cb.currentTimeout = cb.config.ResetTimeout
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the circuit breaker statistics.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{
		State:            cb.state,
		ConsecutiveFails: cb.failures,
		TotalFailures:    cb.totalFailures,
		TotalSuccesses:   cb.totalSuccesses,
		CurrentTimeout:   cb.currentTimeout,
		ConsecutiveSkips: cb.consecutiveSkips,
	}
}

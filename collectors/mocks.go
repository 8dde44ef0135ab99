package collectors

import (
	"context"
	"sync"
)

// MockSampler replays scripted readings, one step per Sample call. When the
// script is exhausted the last step repeats. A nil step with a non-nil Err
// entry simulates a platform failure for that tick.
type MockSampler struct {
	name   string
	labels []string

	mu    sync.Mutex
	steps [][]int64
	errs  []error
	calls int
}

// NewMockSampler creates a mock producing the given labels. Each step holds
// one value per label, in label order.
func NewMockSampler(name string, labels []string, steps ...[]int64) *MockSampler {
	return &MockSampler{
		name:   name,
		labels: labels,
		steps:  steps,
	}
}

// FailAt makes the call with the given zero-based index return err.
func (m *MockSampler) FailAt(call int, err error) *MockSampler {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.errs) <= call {
		m.errs = append(m.errs, nil)
	}
	m.errs[call] = err
	return m
}

// Name returns the mock's name.
func (m *MockSampler) Name() string { return m.name }

// Labels returns the mock's labels.
func (m *MockSampler) Labels() []string { return m.labels }

// Calls returns how many times Sample has been called.
func (m *MockSampler) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Sample returns the next scripted step.
func (m *MockSampler) Sample(ctx context.Context) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.calls
	m.calls++

	if call < len(m.errs) && m.errs[call] != nil {
		return nil, m.errs[call]
	}
	if len(m.steps) == 0 {
		return nil, nil
	}
	step := m.steps[len(m.steps)-1]
	if call < len(m.steps) {
		step = m.steps[call]
	}

	readings := make([]Reading, 0, len(m.labels))
	for i, label := range m.labels {
		if i >= len(step) {
			break
		}
		readings = append(readings, Reading{Label: label, Value: step[i]})
	}
	return readings, nil
}

// Compile-time interface compliance check.
var _ Sampler = (*MockSampler)(nil)

// Package collectors defines the sampler interface that feeds raw readings
// into the meter, and a registry of the samplers a monitor runs.
package collectors

import (
	"context"
)

// Reading is one raw value for one counter label.
type Reading struct {
	// Label names the counter this value is ingested into (e.g. "wifi-in").
	Label string `json:"label"`

	// Value is the raw sample: bytes transferred during the tick for network
	// counters, busy percent for CPU.
	Value int64 `json:"value"`
}

// Sampler reads one or more raw signals from the platform. It is called once
// per tick by the monitor loop and must not block past the context deadline.
type Sampler interface {
	// Name returns the sampler's unique identifier (e.g. "netstat", "cpu").
	Name() string

	// Labels lists the counter labels this sampler produces readings for.
	Labels() []string

	// Sample takes one reading per label. On error the caller ingests nothing
	// for this sampler during the tick.
	Sample(ctx context.Context) ([]Reading, error)
}

// Registry holds registered samplers in registration order.
type Registry struct {
	samplers []Sampler
}

// NewRegistry creates a new empty sampler registry.
func NewRegistry() *Registry {
	return &Registry{
		samplers: make([]Sampler, 0),
	}
}

// Register adds a sampler to the registry.
// If a sampler with the same name already exists, it is replaced.
func (r *Registry) Register(s Sampler) {
	for i, existing := range r.samplers {
		if existing.Name() == s.Name() {
			r.samplers[i] = s
			return
		}
	}
	r.samplers = append(r.samplers, s)
}

// Get returns a sampler by name.
func (r *Registry) Get(name string) (Sampler, bool) {
	for _, s := range r.samplers {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// All returns all registered samplers.
func (r *Registry) All() []Sampler {
	result := make([]Sampler, len(r.samplers))
	copy(result, r.samplers)
	return result
}

// Labels returns every label produced by the registered samplers, in order.
func (r *Registry) Labels() []string {
	var labels []string
	for _, s := range r.samplers {
		labels = append(labels, s.Labels()...)
	}
	return labels
}

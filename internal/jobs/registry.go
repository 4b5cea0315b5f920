package jobs

import (
	"fmt"
	"sync"
)

// Factory rebuilds an executable job from its persisted record.
type Factory func(rec Record) (Job, error)

// Registry maps job types to factories so recovered records can run again.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs the factory for jobType, replacing any previous one.
func (r *Registry) Register(jobType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = factory
}

// Build rebuilds the job described by rec.
func (r *Registry) Build(rec Record) (Job, error) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, rec.Type)
	}
	job, err := factory(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild %s job %s: %w", rec.Type, rec.ID, err)
	}
	return job, nil
}

package strategy

import (
	"fmt"
	"sync"
)

// Registry keeps strategies in registration order
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
	index      map[string]Strategy
}

// NewRegistry creates a registry holding the given strategies
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{index: make(map[string]Strategy)}
	for _, s := range strategies {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a strategy; ids must be unique and non-empty
func (r *Registry) Register(s Strategy) error {
	if s == nil || s.ID() == "" {
		return fmt.Errorf("strategy must have a non-empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[s.ID()]; exists {
		return fmt.Errorf("strategy %q already registered", s.ID())
	}
	r.strategies = append(r.strategies, s)
	r.index[s.ID()] = s
	return nil
}

// All returns the strategies in registration order
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// IDs returns the registered ids in registration order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		ids[i] = s.ID()
	}
	return ids
}

// Get looks up a strategy by id
func (r *Registry) Get(id string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.index[id]
	return s, ok
}

// Len returns the number of registered strategies
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

package extract

import (
	"sync"

	"media-fetch-go/pkg/types"
)

// Registry manages extraction strategies. Strategies are checked in
// registration order; the fallback serves platforms nothing claims.
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
	fallback   Strategy
}

// NewRegistry creates a strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make([]Strategy, 0),
	}
}

// Register adds a strategy to the registry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = append(r.strategies, s)
}

// SetFallback sets the strategy used when no strategy matches.
func (r *Registry) SetFallback(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = s
}

// Get returns the strategy for the given platform.
func (r *Registry) Get(p types.Platform) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.strategies {
		if s.CanHandle(p) {
			return s
		}
	}
	return r.fallback
}

// All returns all registered strategies.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Strategy, len(r.strategies))
	copy(result, r.strategies)
	return result
}

// DefaultRegistry builds a registry with all platform strategies wired.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewYouTubeStrategy())
	r.Register(NewTikTokStrategy())
	r.Register(NewInstagramStrategy())
	r.SetFallback(NewGenericStrategy())
	return r
}

package ratelimiter

import (
	"fmt"
	"sync"
)

// Registry manages limiters keyed by provider name.
type Registry interface {
	Get(provider string) (Limiter, error)
	Set(provider string, limiter Limiter)
}

type mapRegistry struct {
	limiters map[string]Limiter
	mu       sync.RWMutex
}

// NewRegistry creates a new in-memory limiter registry.
func NewRegistry() Registry {
	return &mapRegistry{
		limiters: make(map[string]Limiter),
	}
}

func (r *mapRegistry) Get(provider string) (Limiter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limiter, exists := r.limiters[provider]
	if !exists {
		return nil, fmt.Errorf("rate limiter not found for provider: %s", provider)
	}
	return limiter, nil
}

func (r *mapRegistry) Set(provider string, limiter Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter == nil {
		delete(r.limiters, provider)
		return
	}
	r.limiters[provider] = limiter
}

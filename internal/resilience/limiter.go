package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter implements per-dependency rate limiting
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until the named dependency may be called or ctx is done
func (l *Limiter) Wait(ctx context.Context, dependency string) error {
	return l.getLimiter(dependency).Wait(ctx)
}

// Allow checks if a call is allowed without waiting
func (l *Limiter) Allow(dependency string) bool {
	return l.getLimiter(dependency).Allow()
}

// getLimiter returns the rate limiter for a dependency
func (l *Limiter) getLimiter(dependency string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[dependency]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[dependency]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[dependency] = limiter

	return limiter
}

// SetRate sets a custom rate limit for one dependency
func (l *Limiter) SetRate(dependency string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[dependency] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

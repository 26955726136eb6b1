package ai

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// LimiterKey identifies one outbound throttle.
type LimiterKey struct {
	Provider  string
	Operation string
}

// Limiters hands out one token bucket per (provider, operation). A nil
// *Limiters never blocks.
type Limiters struct {
	mu       sync.Mutex
	limiters map[LimiterKey]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiters creates a registry whose buckets allow rps requests per second.
// A non-positive rps disables throttling.
func NewLimiters(rps float64, burst int) *Limiters {
	if burst < 1 {
		burst = 1
	}
	return &Limiters{
		limiters: make(map[LimiterKey]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Get returns the limiter for key, creating it on first use.
func (l *Limiters) Get(key LimiterKey) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		limit := rate.Inf
		if l.rps > 0 {
			limit = rate.Limit(l.rps)
		}
		lim = rate.NewLimiter(limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Wait blocks until a request for key may proceed or ctx is done.
func (l *Limiters) Wait(ctx context.Context, key LimiterKey) error {
	if l == nil {
		return nil
	}
	return l.Get(key).Wait(ctx)
}

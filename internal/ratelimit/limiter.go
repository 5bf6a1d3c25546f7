package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"fundwatch/internal/fund"
)

// Limit is the request budget for one provider.
type Limit struct {
	// PerSecond is the sustained request rate. Zero or negative means unlimited.
	PerSecond float64
	// Burst is the number of requests allowed at once.
	Burst int
}

// Limiter manages rate limits for the different providers
type Limiter struct {
	limiters map[fund.Source]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter with one token bucket per configured provider.
func New(limits map[fund.Source]Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[fund.Source]*rate.Limiter, len(limits)),
	}
	for src, lim := range limits {
		l.Set(src, lim)
	}
	return l
}

// Unlimited returns a limiter that never blocks.
func Unlimited() *Limiter {
	return New(nil)
}

// Set replaces the budget for source.
func (l *Limiter) Set(source fund.Source, lim Limit) {
	burst := lim.Burst
	if burst <= 0 {
		burst = 1
	}
	r := rate.Limit(lim.PerSecond)
	if lim.PerSecond <= 0 {
		r = rate.Inf
	}

	l.mu.Lock()
	l.limiters[source] = rate.NewLimiter(r, burst)
	l.mu.Unlock()
}

// Wait blocks until the rate limiter permits a request to source.
// It returns an error if the context is canceled before the request can proceed
func (l *Limiter) Wait(ctx context.Context, source fund.Source) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[source]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this provider, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

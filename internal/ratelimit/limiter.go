// Package ratelimit bounds outbound request rate per retailer.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiters hands out one token bucket per key, created on first use.
type Limiters struct {
	rps   float64
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New returns limiters allowing rps requests per second per key with the given burst.
// rps <= 0 disables limiting.
func New(rps float64, burst int) *Limiters {
	if burst <= 0 {
		burst = int(rps * 2)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiters{rps: rps, burst: burst, buckets: make(map[string]*rate.Limiter)}
}

// Enabled reports whether Wait can block.
func (l *Limiters) Enabled() bool {
	return l != nil && l.rps > 0
}

func (l *Limiters) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.buckets[key] = b
	}
	return b
}

// Wait blocks until key may send one request or ctx is done.
func (l *Limiters) Wait(ctx context.Context, key string) error {
	if !l.Enabled() {
		return ctx.Err()
	}
	return l.bucket(key).Wait(ctx)
}

// Stats returns the configured rate and burst.
func (l *Limiters) Stats() (rps float64, burst int) {
	return l.rps, l.burst
}

package safety

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter throttles calls to an external collaborator.
type RateLimiter struct {
	limiter *rate.Limiter
	name    string
	waits   atomic.Int64
	denied  atomic.Int64
}

// NewRateLimiter allows perSecond calls per second with the given burst.
// A non-positive rate disables limiting.
func NewRateLimiter(name string, perSecond float64, burst int) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		name:    name,
	}
}

// Allow reports whether a call may happen now without waiting.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	rl.denied.Add(1)
	return false
}

// Wait blocks until a call is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.waits.Add(1)
	return rl.limiter.Wait(ctx)
}

// RateLimiterStats holds statistics about a rate limiter
type RateLimiterStats struct {
	Name   string  `json:"name"`
	Limit  float64 `json:"limit"`
	Burst  int     `json:"burst"`
	Waits  int64   `json:"waits"`
	Denied int64   `json:"denied"`
}

// GetStats returns current statistics about the rate limiter.
// An unlimited limiter reports a limit of 0.
func (rl *RateLimiter) GetStats() RateLimiterStats {
	limit := float64(rl.limiter.Limit())
	if math.IsInf(limit, 1) {
		limit = 0
	}
	return RateLimiterStats{
		Name:   rl.name,
		Limit:  limit,
		Burst:  rl.limiter.Burst(),
		Waits:  rl.waits.Load(),
		Denied: rl.denied.Load(),
	}
}

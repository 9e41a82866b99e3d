package util

import (
	"context"
	"sync"
	"time"
)

// recheckInterval bounds how often a blocked Wait re-evaluates the bucket.
const recheckInterval = 10 * time.Millisecond

// RateLimiter is a single-token bucket used to keep market-data polling
// inside a provider's request budget. Tokens replenish continuously at the
// configured rate and never accumulate beyond one, so callers cannot burst.
type RateLimiter struct {
	rate   float64 // tokens per second
	tokens float64
	last   time.Time
	mu     sync.Mutex
}

// NewRateLimiter creates a RateLimiter admitting perMinute operations per
// minute. The bucket starts full so the first call never waits.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		rate:   float64(perMinute) / 60.0,
		tokens: 1,
		last:   time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
		if rl.tokens > 1 {
			rl.tokens = 1
		}
		rl.last = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(recheckInterval):
		}
	}
}

package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
// Tokens regenerate continuously at RequestsPerSecond up to BurstSize and
// each admitted call consumes one.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 100
	}
	if config.BurstSize <= 0 {
		config.BurstSize = int(config.RequestsPerSecond)
		if config.BurstSize < 1 {
			config.BurstSize = 1
		}
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.BurstSize),
		lastRefill: time.Now(),
	}
}

// TryAcquire consumes a token if one is available without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}
	_, ok := rl.take()
	return ok
}

// Acquire blocks until a token is available. It returns false if timeout
// elapses or ctx is done first. A timeout <= 0 waits without a deadline.
func (rl *RateLimiter) Acquire(ctx context.Context, timeout time.Duration) bool {
	if !rl.config.Enabled {
		return true
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		wait, ok := rl.take()
		if ok {
			return true
		}

		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false
			}
			wait = min(wait, remaining)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// AvailableTokens returns the current number of tokens after a refill.
// A disabled limiter always reports a full bucket.
func (rl *RateLimiter) AvailableTokens() float64 {
	if !rl.config.Enabled {
		return float64(rl.config.BurstSize)
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// RequestsPerSecond returns the configured refill rate.
func (rl *RateLimiter) RequestsPerSecond() float64 {
	return rl.config.RequestsPerSecond
}

// BurstSize returns the bucket capacity.
func (rl *RateLimiter) BurstSize() int {
	return rl.config.BurstSize
}

// Enabled reports whether the limiter admits calls selectively.
func (rl *RateLimiter) Enabled() bool {
	return rl.config.Enabled
}

// take refills and consumes one token. When none is available it returns
// the time until the next token regenerates.
func (rl *RateLimiter) take() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}

	waitSeconds := (1 - rl.tokens) / rl.config.RequestsPerSecond
	return time.Duration(waitSeconds * float64(time.Second)), false
}

// refill adds tokens based on time elapsed. Callers hold mu.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	rl.tokens = min(float64(rl.config.BurstSize), rl.tokens+elapsed*rl.config.RequestsPerSecond)
}

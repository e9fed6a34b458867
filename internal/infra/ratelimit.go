// Package infra provides shared plumbing for outbound provider traffic:
// request pacing and a single-attempt HTTP GET helper.
package infra

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket that paces outgoing provider requests.
// It never retries or queues work on its own; callers block in Wait.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests
// per refillRate duration. maxTokens <= 0 disables limiting.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	if refillRate <= 0 {
		refillRate = time.Second
	}
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow takes a token if one is available without blocking.
func (rl *RateLimiter) Allow() bool {
	if rl == nil || rl.maxTokens <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.maxTokens <= 0 {
		return ctx.Err()
	}
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		delay := rl.lastRefill.Add(rl.refillRate).Sub(rl.now())
		rl.mu.Unlock()

		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	if elapsed < rl.refillRate {
		return
	}
	periods := int(elapsed / rl.refillRate)
	rl.tokens = min(rl.tokens+periods*rl.maxTokens, rl.maxTokens)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.refillRate)
}

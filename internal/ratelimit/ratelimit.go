// Package ratelimit provides token bucket rate limiting, globally or per
// chat.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements a token bucket rate limiter.
// It is safe for concurrent use.
//
// Tokens are added at refillRate per second up to maxTokens; each request
// consumes one token.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// New creates a full limiter with the given burst capacity and refill rate.
func New(maxTokens, refillRate float64) *Limiter {
	return newWithClock(maxTokens, refillRate, time.Now)
}

func newWithClock(maxTokens, refillRate float64, now func() time.Time) *Limiter {
	return &Limiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens = min(l.tokens+elapsed*l.refillRate, l.maxTokens)
	l.lastRefill = now
}

// Allow consumes a token if one is available. It never blocks.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second))
		l.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// IsFull reports whether the bucket is at capacity, i.e. the key has been
// idle long enough to be forgotten.
func (l *Limiter) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	return l.tokens >= l.maxTokens
}

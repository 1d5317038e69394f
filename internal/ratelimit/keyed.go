package ratelimit

import (
	"sync"
	"time"

	"github.com/tulul/tululbot/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter in metrics (e.g. "chat").
	Name string

	Burst      float64 // Maximum tokens per key
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod is how often idle keys are dropped. Zero disables cleanup.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter keeps one token bucket per key, e.g. per Telegram chat.
// Keys whose bucket has refilled completely are dropped periodically.
type KeyedLimiter[K comparable] struct {
	mu       sync.Mutex
	limiters map[K]*Limiter
	cfg      KeyedConfig
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKeyedLimiter creates a per-key limiter and starts its cleanup loop.
// Call Stop to end the loop.
func NewKeyedLimiter[K comparable](cfg KeyedConfig) *KeyedLimiter[K] {
	kl := &KeyedLimiter[K]{
		limiters: make(map[K]*Limiter),
		cfg:      cfg,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

// Allow consumes a token from key's bucket.
func (kl *KeyedLimiter[K]) Allow(key K) bool {
	if kl.limiter(key).Allow() {
		return true
	}
	kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	return false
}

// ActiveCount returns the number of keys currently tracked.
func (kl *KeyedLimiter[K]) ActiveCount() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

func (kl *KeyedLimiter[K]) limiter(key K) *Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	l, ok := kl.limiters[key]
	if !ok {
		l = newWithClock(kl.cfg.Burst, kl.cfg.RefillRate, kl.now)
		kl.limiters[key] = l
	}
	return l
}

// Cleanup drops every key whose bucket is full.
func (kl *KeyedLimiter[K]) Cleanup() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	removed := 0
	for key, l := range kl.limiters {
		if l.IsFull() {
			delete(kl.limiters, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter[K]) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup loop. Safe to call multiple times.
func (kl *KeyedLimiter[K]) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}

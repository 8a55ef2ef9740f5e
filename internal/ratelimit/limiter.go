// Package ratelimit throttles form and API submissions per client with
// in-memory token buckets.
package ratelimit

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Metrics receives a count for every blocked request
type Metrics interface {
	IncrementRateLimitBlock()
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL drops a client's bucket after this long without requests
	IdleTTL time.Duration
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
		IdleTTL:           10 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	config  Config
	metrics Metrics
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts the idle bucket cleanup
func NewRateLimiter(config Config, metrics Metrics) *RateLimiter {
	def := DefaultConfig()
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}

	rl := &RateLimiter{
		config:  config,
		metrics: metrics,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(key string) Result {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	rl.mu.Unlock()

	result := Result{
		Allowed:   allowed,
		Limit:     rl.config.Burst,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}

	// time until the bucket is full again
	missing := float64(rl.config.Burst) - tokens
	result.ResetAt = now.Add(secondsToDuration(missing / rl.config.RequestsPerSecond))

	if !allowed {
		result.RetryAfter = secondsToDuration((1 - tokens) / rl.config.RequestsPerSecond)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitBlock()
		}
	}
	return result
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.purgeIdle(); n > 0 {
				slog.Debug("Dropped idle rate limit buckets", "count", n)
			}
		case <-rl.stop:
			return
		}
	}
}

// purgeIdle removes buckets not used within IdleTTL and returns how many were dropped
func (rl *RateLimiter) purgeIdle() int {
	cutoff := rl.now().Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	dropped := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			dropped++
		}
	}
	return dropped
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	count := len(rl.buckets)
	rl.mu.Unlock()

	return map[string]interface{}{
		"clients":             count,
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst":               rl.config.Burst,
	}
}

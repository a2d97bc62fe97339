// Package ratelimit counts requests per key per minute.
//
// MemoryLimiter keeps its buckets inside one process and is only accurate for a
// single instance. Deployments with more than one instance use RedisLimiter so
// all instances share the same counters.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	// Allow consumes one request for key against a per-minute limit.
	Allow(ctx context.Context, key string, limit int) (bool, error)
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

type MemoryLimiter struct {
	store sync.Map // map[string]*bucket
	now   func() time.Time
	idle  time.Duration
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{now: time.Now, idle: 10 * time.Minute}
}

// Run evicts idle buckets until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *MemoryLimiter) evictIdle() {
	now := l.now()
	l.store.Range(func(key, value interface{}) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastAccess) > l.idle {
			l.store.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	now := l.now()

	val, _ := l.store.LoadOrStore(key, &bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	// Rate is limit / 60 seconds
	refillRate := float64(limit) / 60.0
	refillTokens := int(now.Sub(b.lastRefill).Seconds() * refillRate)
	if refillTokens > 0 {
		b.tokens = min(b.tokens+refillTokens, limit)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter caps API requests per caller. The interface exists so a
// multi-instance deployment can swap in a shared-store implementation;
// the in-process one below does not survive horizontal scaling.
type Limiter interface {
	Allow(key string) bool
}

// PerUserLimiter keeps one token bucket per caller key.
type PerUserLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewPerUserLimiter(perMinute int) *PerUserLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &PerUserLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
	}
}

func (l *PerUserLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

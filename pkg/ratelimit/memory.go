package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepEvery is how many IsLimited calls pass between sweeps of idle keys.
const sweepEvery = 1024

const emptyKey = "__empty__"

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InMemoryRateLimiter keeps one token bucket per key. Buckets idle for two
// windows are dropped.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	calls   uint64
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

func (r *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = emptyKey
	}

	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.bucketFor(key, now)

	r.calls++
	if r.calls%sweepEvery == 0 {
		r.sweep(now.Add(-2 * r.window))
	}

	return !b.limiter.AllowN(now, 1), nil
}

func (r *InMemoryRateLimiter) bucketFor(key string, now time.Time) *bucket {
	if b, ok := r.buckets[key]; ok {
		b.lastSeen = now
		return b
	}

	every := r.window / time.Duration(max(r.requests, 1))
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Every(every), r.requests),
		lastSeen: now,
	}
	r.buckets[key] = b
	return b
}

func (r *InMemoryRateLimiter) sweep(cutoff time.Time) {
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

func (r *InMemoryRateLimiter) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (r *InMemoryRateLimiter) Close() error {
	return nil
}

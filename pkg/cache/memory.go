// Package cache holds an in-process TTL cache used when no Redis is configured.
package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value     string
	expiresAt time.Time
}

// MemoryCache satisfies the application Cache contract in a single process.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// Get returns ("", nil) for missing or expired keys.
func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return "", nil
	}

	if !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt) {
		c.mu.Lock()
		if current, still := c.items[key]; still && current.expiresAt.Equal(it.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return "", nil
	}

	return it.value, nil
}

// Set stores value; ttl=0 means no expiry.
func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

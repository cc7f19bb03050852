package factory

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/caregiver-waitlist/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

type pingOnlyCache struct{}

func (pingOnlyCache) Ping(context.Context) error { return nil }

type redisBackedCache struct {
	client *redis.Client
}

func (redisBackedCache) Ping(context.Context) error { return nil }

func (c redisBackedCache) GetClient() *redis.Client { return c.client }

func TestDefaultRateLimiterFactory_InMemoryWithoutRedisClient(t *testing.T) {
	for name, cache := range map[string]Cache{"nil cache": nil, "plain cache": pingOnlyCache{}} {
		t.Run(name, func(t *testing.T) {
			f := NewDefaultRateLimiterFactory(RateLimitConfig{Requests: 3, Window: time.Minute}, cache)

			assert.False(t, f.IsDistributed())
			assert.IsType(t, &ratelimit.InMemoryRateLimiter{}, f.CreateRateLimiter())
		})
	}
}

func TestDefaultRateLimiterFactory_RedisWhenClientAvailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	f := NewDefaultRateLimiterFactory(RateLimitConfig{Requests: 3, Window: time.Minute, KeyPrefix: "ratelimit:waitlist:"}, redisBackedCache{client: client})

	assert.True(t, f.IsDistributed())
	limiter := f.CreateRateLimiter()
	assert.IsType(t, &ratelimit.RedisRateLimiter{}, limiter)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 3, requests)
	assert.Equal(t, time.Minute, window)
}

func TestNewRouteRateLimiter_DefaultsWindow(t *testing.T) {
	limiter := NewRouteRateLimiter(30, "ratelimit:waitlist:", nil, nil)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 30, requests)
	assert.Equal(t, time.Minute, window)
}

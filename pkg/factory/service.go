// Package factory builds the per-route rate limiters controllers attach to
// their handlers. Limiters are shared across instances when the application
// cache is Redis-backed.
package factory

import (
	"context"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/pkg/constants"
	"github.com/akeren/caregiver-waitlist/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type Cache interface {
	Ping(ctx context.Context) error
}

type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RateLimitConfig struct {
	Requests int
	// Window defaults to constants.DefaultRateLimitWindow.
	Window    time.Duration
	KeyPrefix string
	Logger    *log.Logger
}

type RateLimiterFactory interface {
	CreateRateLimiter() ratelimit.RateLimiter
}

type DefaultRateLimiterFactory struct {
	config ratelimit.RateLimitConfig
}

// NewDefaultRateLimiterFactory builds Redis-backed limiters when cache exposes a
// Redis client and in-memory limiters otherwise.
func NewDefaultRateLimiterFactory(cfg RateLimitConfig, cache Cache) *DefaultRateLimiterFactory {
	limiterConfig := ratelimit.RateLimitConfig{
		Requests:  cfg.Requests,
		Window:    cfg.Window,
		KeyPrefix: cfg.KeyPrefix,
	}
	if limiterConfig.Window <= 0 {
		limiterConfig.Window = constants.DefaultRateLimitWindow()
	}
	// A nil *log.Logger must not become a non-nil interface.
	if cfg.Logger != nil {
		limiterConfig.Logger = cfg.Logger
	}
	if provider, ok := cache.(RedisClientProvider); ok {
		limiterConfig.Redis = provider.GetClient()
	}

	return &DefaultRateLimiterFactory{config: limiterConfig}
}

// NewRouteRateLimiter is the shorthand controllers use: requests per default
// window under their own key prefix.
func NewRouteRateLimiter(requests int, keyPrefix string, logger *log.Logger, cache Cache) ratelimit.RateLimiter {
	return NewDefaultRateLimiterFactory(RateLimitConfig{
		Requests:  requests,
		KeyPrefix: keyPrefix,
		Logger:    logger,
	}, cache).CreateRateLimiter()
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter() ratelimit.RateLimiter {
	cfg := f.config
	return ratelimit.NewRateLimiter(&cfg)
}

func (f *DefaultRateLimiterFactory) IsDistributed() bool {
	return f.config.Redis != nil
}

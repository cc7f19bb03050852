// Package ratelimit limits requests per client key, either inside one process
// or across instances sharing a Redis server.
package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Logger interface {
	Error(msg string, args ...any)
}

// RateLimiter admits at most N requests per window for each key.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	// IsLimited records one request for key and reports whether it exceeded
	// the limit. An error means the decision could not be made.
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Redis selects the distributed limiter; nil keeps counts in memory.
	Redis     *redis.Client
	KeyPrefix string
	Logger    Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis == nil {
		return NewInMemoryRateLimiter(config.Requests, config.Window)
	}

	return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.KeyPrefix, config.Logger)
}

package config

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/pkg/cache"
	pkgredis "github.com/akeren/caregiver-waitlist/pkg/redis"
	"github.com/akeren/caregiver-waitlist/pkg/utils"
	"github.com/go-redis/redis/v8"
)

var ErrCacheNotConfigured = errors.New("cache host is not configured")

// Cache is the string cache shared by the count cache, the rate limiters and,
// when it is Redis-backed, the Redis waitlist store.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisClientProvider is implemented by caches that can hand out their
// go-redis client for Lua scripts.
type RedisClientProvider interface {
	GetClient() *redis.Client
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: utils.GetEnvOrDefault("REDIS_PASSWORD", ""),
		DB:       parseRedisDB(utils.GetEnvTrimmed("REDIS_DB")),
	}
}

// parseRedisDB keeps database 0 for anything that is not a non-negative
// integer.
func parseRedisDB(raw string) int {
	db, err := strconv.Atoi(raw)
	if err != nil || db < 0 {
		return 0
	}
	return db
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) redisConfig() *pkgredis.Config {
	return &pkgredis.Config{
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	}
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cfg := cc.redisConfig()
	redisCache, err := pkgredis.NewRedisCache(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Cache (Redis) connected", "addr", cfg.Addr(), "db", cfg.DB)
	return redisCache, nil
}

// NewCacheOrFallback never returns nil: when Redis is not configured or not
// reachable the process-local TTL cache is used instead.
func (cc *CacheConfig) NewCacheOrFallback(logger *log.Logger) Cache {
	redisCache, err := cc.NewCache(logger)
	switch {
	case err == nil:
		return redisCache
	case errors.Is(err, ErrCacheNotConfigured):
		logger.Info("Cache (Redis) is not configured; using in-process cache")
	default:
		logger.Error("Failed to connect to Redis; using in-process cache", "error", err)
	}

	return cache.NewMemoryCache()
}

// IsDistributedCache reports whether the cache is shared across instances.
func IsDistributedCache(c Cache) bool {
	return GetRedisClient(c) != nil
}

func GetRedisClient(c Cache) *redis.Client {
	if provider, ok := c.(RedisClientProvider); ok {
		return provider.GetClient()
	}

	return nil
}

func CloseCache(c Cache, logger *log.Logger) error {
	if c == nil {
		return nil
	}

	if err := c.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return err
	}

	logger.Info("Cache connection closed")
	return nil
}

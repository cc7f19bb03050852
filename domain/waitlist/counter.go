package waitlist

import (
	"context"
	"strconv"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/log"
	"golang.org/x/sync/singleflight"
)

const CountCacheKey = "waitlist:count"

// CountCache is the slice of the application cache the counter needs.
type CountCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// entryCounter reads the entry count through a cache. Concurrent misses are
// collapsed into one CountEntries call.
type entryCounter struct {
	repository WaitlistRepository
	cache      CountCache
	ttl        time.Duration
	timeout    time.Duration
	logger     *log.Logger
	group      singleflight.Group
}

func newEntryCounter(repository WaitlistRepository, cache CountCache, ttl, timeout time.Duration, logger *log.Logger) *entryCounter {
	return &entryCounter{
		repository: repository,
		cache:      cache,
		ttl:        ttl,
		timeout:    timeout,
		logger:     logger,
	}
}

// Count never fails. Any error is logged and reported as zero.
func (ec *entryCounter) Count(ctx context.Context) int {
	logger := log.GetLoggerInstanceFromContext(ctx, ec.logger)

	if ec.cache != nil {
		cached, err := ec.cache.Get(ctx, CountCacheKey)
		if err != nil {
			logger.Warn("Waitlist count cache read failed", "error", err)
		} else if cached != "" {
			if n, convErr := strconv.Atoi(cached); convErr == nil {
				return n
			}
		}
	}

	value, err, _ := ec.group.Do(CountCacheKey, func() (interface{}, error) {
		countCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ec.timeout)
		defer cancel()

		n, countErr := ec.repository.CountEntries(countCtx)
		if countErr != nil {
			return 0, countErr
		}

		if ec.cache != nil && ec.ttl > 0 {
			if setErr := ec.cache.Set(countCtx, CountCacheKey, strconv.Itoa(n), ec.ttl); setErr != nil {
				logger.Warn("Waitlist count cache write failed", "error", setErr)
			}
		}

		return n, nil
	})
	if err != nil {
		logger.Warn("Waitlist count unavailable; reporting zero", "error", err)
		return 0
	}

	return value.(int)
}

// Invalidate drops the cached count after a successful submission.
func (ec *entryCounter) Invalidate(ctx context.Context) {
	if ec.cache == nil {
		return
	}

	ec.group.Forget(CountCacheKey)

	if err := ec.cache.Delete(ctx, CountCacheKey); err != nil {
		log.GetLoggerInstanceFromContext(ctx, ec.logger).Warn("Waitlist count cache invalidation failed", "error", err)
	}
}

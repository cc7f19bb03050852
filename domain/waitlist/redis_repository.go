package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
	"github.com/akeren/caregiver-waitlist/pkg/circuitbreaker"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/go-redis/redis/v8"
)

const DefaultRedisKeyPrefix = "waitlist"

// createEntryScript stores the entry under its email key only if the key is
// absent and then appends the email to the ordered index, in one atomic step.
// Returns 1 on insert, 0 when the email is taken.
var createEntryScript = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[2])
return 1
`)

type redisRepository struct {
	client  *redis.Client
	prefix  string
	breaker circuitbreaker.CircuitBreaker
	now     func() time.Time
}

// NewRedisRepository stores entries as JSON strings keyed by email, plus a list
// of emails preserving insertion order. Infrastructure failures trip a circuit
// breaker; duplicates do not.
func NewRedisRepository(client *redis.Client, keyPrefix string, breaker circuitbreaker.CircuitBreaker) WaitlistRepository {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(nil)
	}

	return &redisRepository{
		client:  client,
		prefix:  keyPrefix,
		breaker: breaker,
		now:     time.Now,
	}
}

func (rr *redisRepository) entryKey(email string) string {
	return fmt.Sprintf("%s:entry:%s", rr.prefix, email)
}

func (rr *redisRepository) indexKey() string {
	return rr.prefix + ":entries"
}

func (rr *redisRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := checkStorable(entry); err != nil {
		return nil, err
	}

	stored := stampEntry(entry, rr.now())

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, apperrors.NewInternalServerError("unable to encode waitlist entry", err)
	}

	inserted := false
	err = rr.guard(func() error {
		res, runErr := createEntryScript.Run(ctx, rr.client,
			[]string{rr.entryKey(stored.Email), rr.indexKey()},
			string(payload), stored.Email,
		).Int()
		if runErr != nil {
			return runErr
		}
		inserted = res == 1
		return nil
	})
	if err != nil {
		return nil, rr.storageError("unable to create waitlist entry", err)
	}

	if !inserted {
		return nil, newDuplicateEmailError()
	}

	return stored, nil
}

func (rr *redisRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, bool, error) {
	var raw string
	found := true

	err := rr.guard(func() error {
		value, getErr := rr.client.Get(ctx, rr.entryKey(email)).Result()
		if errors.Is(getErr, redis.Nil) {
			found = false
			return nil
		}
		raw = value
		return getErr
	})
	if err != nil {
		return nil, false, rr.storageError("failed to fetch waitlist entry", err)
	}

	if !found {
		return nil, false, nil
	}

	var entry models.WaitlistEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, apperrors.NewDatabaseError("failed to decode waitlist entry", err)
	}

	return &entry, true, nil
}

func (rr *redisRepository) GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	var values []interface{}

	err := rr.guard(func() error {
		emails, rangeErr := rr.client.LRange(ctx, rr.indexKey(), 0, -1).Result()
		if rangeErr != nil || len(emails) == 0 {
			return rangeErr
		}

		keys := make([]string, len(emails))
		for i, email := range emails {
			keys[i] = rr.entryKey(email)
		}

		var getErr error
		values, getErr = rr.client.MGet(ctx, keys...).Result()
		return getErr
	})
	if err != nil {
		return nil, rr.storageError("unable to fetch waitlist entries", err)
	}

	entries := make([]*models.WaitlistEntry, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var entry models.WaitlistEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, apperrors.NewDatabaseError("failed to decode waitlist entry", err)
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}

func (rr *redisRepository) CountEntries(ctx context.Context) (int, error) {
	var count int64

	err := rr.guard(func() error {
		var lenErr error
		count, lenErr = rr.client.LLen(ctx, rr.indexKey()).Result()
		return lenErr
	})
	if err != nil {
		return 0, rr.storageError("unable to count waitlist entries", err)
	}

	return int(count), nil
}

func (rr *redisRepository) guard(fn func() error) error {
	return rr.breaker.Call(fn)
}

func (rr *redisRepository) storageError(message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewRequestTimeoutError(message, err)
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return apperrors.NewDatabaseError("waitlist storage temporarily unavailable", err)
	}
	return apperrors.NewDatabaseError(message, err)
}

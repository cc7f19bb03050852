// Package retry runs an operation again with exponential backoff until it
// succeeds, gives a non-retryable error or the context ends.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

type RetryPolicy interface {
	Do(ctx context.Context, fn func() error) error
}

type Config struct {
	// MaxAttempts <= 0 retries until the context is done.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter spreads each delay uniformly over [0, delay] so contending
	// callers do not wake together.
	Jitter bool
	// Retryable decides whether an error is worth another attempt. nil
	// retries every error.
	Retryable func(error) bool
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2,
	}
}

type ExponentialBackoff struct {
	config Config
}

// NewExponentialBackoff copies config, applying defaults when it is nil.
func NewExponentialBackoff(config *Config) *ExponentialBackoff {
	if config == nil {
		config = DefaultConfig()
	}

	cfg := *config
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	return &ExponentialBackoff{config: cfg}
}

// Do returns nil on the first success. When ctx ends the context error is
// joined with the last attempt's error so both stay visible to errors.Is.
func (eb *ExponentialBackoff) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return joinContextError(err, lastErr)
		}

		lastErr = fn()
		switch {
		case lastErr == nil:
			return nil
		case !eb.retryable(lastErr):
			return lastErr
		case eb.config.MaxAttempts > 0 && attempt >= eb.config.MaxAttempts:
			return &MaxRetriesExceededError{LastError: lastErr, MaxAttempts: eb.config.MaxAttempts}
		}

		timer := time.NewTimer(eb.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return joinContextError(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
}

func (eb *ExponentialBackoff) retryable(err error) bool {
	if eb.config.Retryable == nil {
		return true
	}
	return eb.config.Retryable(err)
}

// delay is BaseDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (eb *ExponentialBackoff) delay(attempt int) time.Duration {
	d := float64(eb.config.BaseDelay)
	for range attempt - 1 {
		d *= eb.config.Multiplier
		if eb.config.MaxDelay > 0 && d >= float64(eb.config.MaxDelay) {
			break
		}
	}

	delay := time.Duration(d)
	if eb.config.MaxDelay > 0 {
		delay = min(delay, eb.config.MaxDelay)
	}
	if eb.config.Jitter && delay > 0 {
		delay = rand.N(delay + 1)
	}

	return delay
}

func joinContextError(ctxErr, lastErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return errors.Join(ctxErr, lastErr)
}

// MaxRetriesExceededError indicates that all attempts were used.
type MaxRetriesExceededError struct {
	LastError   error
	MaxAttempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.MaxAttempts, e.LastError)
}

func (e *MaxRetriesExceededError) Unwrap() error {
	return e.LastError
}

func IsMaxRetriesExceeded(err error) bool {
	var maxRetriesErr *MaxRetriesExceededError
	return errors.As(err, &maxRetriesErr)
}

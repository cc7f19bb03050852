package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("connection refused")

func newTestBreaker(cfg *Config) (*circuitBreaker, *time.Time) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(cfg).(*circuitBreaker)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func fail() error    { return errBackend }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(&Config{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1})

	assert.ErrorIs(t, cb.Call(fail), errBackend)
	assert.Equal(t, Closed, cb.State())

	assert.ErrorIs(t, cb.Call(fail), errBackend)
	assert.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(&Config{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1})

	_ = cb.Call(fail)
	require.NoError(t, cb.Call(succeed))
	_ = cb.Call(fail)

	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(&Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 2})

	_ = cb.Call(fail)
	require.Equal(t, Open, cb.State())

	*now = now.Add(2 * time.Minute)

	require.NoError(t, cb.Call(succeed))
	assert.Equal(t, HalfOpen, cb.State())

	require.NoError(t, cb.Call(succeed))
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(&Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 2})

	_ = cb.Call(fail)
	*now = now.Add(2 * time.Minute)

	_ = cb.Call(fail)
	assert.Equal(t, Open, cb.State())
	assert.ErrorIs(t, cb.Call(succeed), ErrCircuitOpen)
}

func TestCircuitBreaker_IsFailureFiltersErrors(t *testing.T) {
	cb, _ := newTestBreaker(&Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	})

	err := cb.Call(func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, cb.State())

	_ = cb.Call(fail)
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb, now := newTestBreaker(&Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Call(fail)
	*now = now.Add(2 * time.Minute)
	_ = cb.Call(succeed)
	_ = cb.Call(fail)
	cb.Reset()

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->closed",
		"closed->open",
		"open->closed",
	}, transitions)
}

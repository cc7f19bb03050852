package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: StatusInternalServerError},
		{name: "plain error", err: cause, want: StatusInternalServerError},
		{name: "conflict", err: NewConflictError("taken", nil), want: StatusConflict},
		{name: "invalid", err: NewInvalidRequestError("bad", nil), want: StatusBadRequest},
		{name: "timeout", err: NewRequestTimeoutError("slow", cause), want: StatusRequestTimeout},
		{name: "database", err: NewDatabaseError("io", cause), want: StatusInternalServerError},
		{name: "wrapped app error", err: fmt.Errorf("outer: %w", NewNotFoundError("missing", nil)), want: StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestGetHumanReadableMessage_DoesNotLeakCauses(t *testing.T) {
	err := NewDatabaseError("unable to create waitlist entry", errors.New("open /srv/data/waitlist.json: permission denied"))

	assert.Equal(t, "unable to create waitlist entry", GetHumanReadableMessage(err))
	assert.Equal(t, genericMessage, GetHumanReadableMessage(errors.New("pq: password authentication failed")))
	assert.Equal(t, genericMessage, GetHumanReadableMessage(nil))
}

func TestAppError_UnwrapsCause(t *testing.T) {
	cause := errors.New("lock busy")
	err := NewRequestTimeoutError("waitlist storage is busy", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeRequestTimeout, GetErrorType(err))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(cause))
	assert.Empty(t, GetErrorType(nil))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(NewConflictError("taken", nil)))
	assert.True(t, IsDuplicateKeyError(errors.New("UNIQUE constraint failed: waitlist_entries.email")))
	assert.True(t, IsDuplicateKeyError(errors.New("duplicate key value violates unique constraint")))
	assert.False(t, IsDuplicateKeyError(errors.New("database is locked")))
	assert.False(t, IsDuplicateKeyError(nil))
}

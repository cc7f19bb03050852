package waitlist

import (
	"errors"

	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
)

// Sentinel errors for the waitlist domain. Adapters wrap them in AppErrors so
// callers can match with errors.Is and still map to an HTTP status.
var (
	ErrDuplicateEmail        = errors.New("waitlist entry with this email already exists")
	ErrStorageNotImplemented = errors.New("database-backed waitlist storage is not implemented")
	ErrInvalidEntry          = errors.New("waitlist entry failed validation")
)

func newDuplicateEmailError() error {
	return apperrors.NewConflictError(ErrDuplicateEmail.Error(), ErrDuplicateEmail)
}

func newNotImplementedError(operation string) error {
	return apperrors.NewNotImplementedError("waitlist storage operation "+operation+" is not implemented", ErrStorageNotImplemented)
}

func IsDuplicateEmail(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}

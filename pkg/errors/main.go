package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies an AppError. It decides the HTTP status and whether
// the failure is something the caller did or something the service did.
type ErrorType string

const (
	ErrorTypeDatabaseError       ErrorType = "DATABASE_ERROR"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeInvalidRequest      ErrorType = "INVALID_REQUEST"
	ErrorTypeConflict            ErrorType = "CONFLICT"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             ErrorType = "UNKNOWN_ERROR"
	ErrorTypeTooManyRequests     ErrorType = "TOO_MANY_REQUESTS"
	ErrorTypeRequestTimeout      ErrorType = "REQUEST_TIMEOUT"
	ErrorTypeNotImplemented      ErrorType = "NOT_IMPLEMENTED"
)

// AppError carries a classification and a message that is safe to show.
// Err is the cause and only ever reaches logs.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType ErrorType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewNotFoundError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, err)
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

// NewDatabaseError is used for every storage I/O failure, whichever backend
// produced it.
func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return NewAppError(ErrorTypeConflict, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInternalServerError, message, err)
}

func NewNotImplementedError(message string, err error) *AppError {
	return NewAppError(ErrorTypeNotImplemented, message, err)
}

func NewRequestTimeoutError(message string, err error) *AppError {
	return NewAppError(ErrorTypeRequestTimeout, message, err)
}

// GetErrorType returns the type of the outermost AppError in err's chain,
// ErrorTypeUnknown for foreign errors and "" for nil.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}

// IsDuplicateKeyError recognises conflict AppErrors and the unique-constraint
// messages SQL drivers produce when gorm cannot translate them.
func IsDuplicateKeyError(err error) bool {
	switch {
	case err == nil:
		return false
	case GetErrorType(err) == ErrorTypeConflict:
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

package errors

import (
	"errors"
	"net/http"
)

const genericMessage = "An unexpected error occurred"

// Re-exported so handlers and middleware only need this package for the
// statuses the error mapping produces.
const (
	StatusNoContent           = http.StatusNoContent
	StatusBadRequest          = http.StatusBadRequest
	StatusNotFound            = http.StatusNotFound
	StatusMethodNotAllowed    = http.StatusMethodNotAllowed
	StatusRequestTimeout      = http.StatusRequestTimeout
	StatusConflict            = http.StatusConflict
	StatusTooManyRequests     = http.StatusTooManyRequests
	StatusInternalServerError = http.StatusInternalServerError
	StatusNotImplemented      = http.StatusNotImplemented
)

var statusByType = map[ErrorType]int{
	ErrorTypeNotFound:        StatusNotFound,
	ErrorTypeInvalidRequest:  StatusBadRequest,
	ErrorTypeConflict:        StatusConflict,
	ErrorTypeTooManyRequests: StatusTooManyRequests,
	ErrorTypeRequestTimeout:  StatusRequestTimeout,
	ErrorTypeNotImplemented:  StatusNotImplemented,
}

// HTTPStatusCode maps err to a response status. Anything unclassified is a
// 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}

	return StatusInternalServerError
}

// GetHumanReadableMessage returns the AppError message, never the text of a
// wrapped cause.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	return genericMessage
}

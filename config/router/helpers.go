package router

import (
	"net/http"
	"strings"

	"github.com/akeren/caregiver-waitlist/internal/log"
)

// GetLogger returns the correlated logger injected by the router middleware.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Data:       data,
		Message:    message,
	}
}

func CreatedResult(data any, resourceName string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusCreated,
		Data:       data,
		Message:    resourceName + " created successfully",
	}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusTooManyRequests,
		Data:       data,
		Message:    "Too Many Requests",
	}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusBadRequest,
		Data:       payload,
		Message:    message,
	}
}

func NotFoundResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusNotFound,
		Data:       nil,
		Message:    message,
	}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusInternalServerError,
		Data:       nil,
		Message:    message,
	}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
	}
}

func RedirectResult(statusCode int, location string) *ServiceResult {
	return &ServiceResult{
		StatusCode: statusCode,
		Location:   location,
	}
}

// ClientIPOrDefault returns the client address as resolved through the
// configured trusted proxies.
func ClientIPOrDefault(ctx *RequestContext, fallback string) string {
	if ip := strings.TrimSpace(ctx.ClientIP()); ip != "" {
		return ip
	}

	return fallback
}

func UserAgentOrDefault(ctx *RequestContext, fallback string) string {
	if ua := strings.TrimSpace(ctx.Request.UserAgent()); ua != "" {
		return ua
	}

	return fallback
}

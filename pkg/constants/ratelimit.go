package constants

import "time"

// Requests allowed per client IP in one window.
const (
	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindowMinutes = 1

	// SubmissionRateLimitRequests guards POST /v1/waitlist, per minute.
	SubmissionRateLimitRequests = 30
	// MonitoringRateLimitRequests guards the health endpoints, per minute.
	MonitoringRateLimitRequests = 10
)

func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

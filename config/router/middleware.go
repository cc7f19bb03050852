package router

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/log"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/akeren/caregiver-waitlist/pkg/ratelimit"
	"github.com/akeren/caregiver-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultMaxBodyBytes = int64(1 << 20)
	defaultHSTSMaxAge   = int64(31536000)

	corsAllowedHeaders = "Content-Type, Content-Length, Accept, Accept-Encoding, Origin, Cache-Control, X-Requested-With, X-CSRF-Token, X-Correlation-ID"
	corsAllowedMethods = "POST, OPTIONS, GET"
)

// httpPolicy is the environment-driven part of the HTTP surface. It is read
// once when the router is built.
type httpPolicy struct {
	allowedOrigins []string
	allowAnyOrigin bool
	maxBodyBytes   int64
	hstsEnabled    bool
	hstsValue      string
}

func loadHTTPPolicy() httpPolicy {
	policy := httpPolicy{
		maxBodyBytes: utils.GetEnvPositiveInt64OrDefault("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes),
	}

	for _, origin := range strings.Split(utils.GetEnvTrimmed("CORS_ALLOWED_ORIGIN"), ",") {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			policy.allowAnyOrigin = true
			policy.allowedOrigins = append(policy.allowedOrigins, origin)
		default:
			policy.allowedOrigins = append(policy.allowedOrigins, origin)
		}
	}

	// HSTS defaults on in production; HSTS_ENABLED overrides either way.
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))
	policy.hstsEnabled = utils.GetEnvBoolOrDefault("HSTS_ENABLED", appEnv == "production" || appEnv == "prod")

	policy.hstsValue = "max-age=" + strconv.FormatInt(utils.GetEnvPositiveInt64OrDefault("HSTS_MAX_AGE", defaultHSTSMaxAge), 10)
	if utils.GetEnvBoolOrDefault("HSTS_INCLUDE_SUBDOMAINS", true) {
		policy.hstsValue += "; includeSubDomains"
	}

	return policy
}

func (p httpPolicy) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowAnyOrigin {
		return true
	}
	for _, allowed := range p.allowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// servesHTTPS reports whether the request reached us over TLS, directly or
// through a TLS-terminating proxy.
func servesHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := log.NormalizeCorrelationID(c.GetHeader(log.CorrelationIDHeader))
		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header(log.CorrelationIDHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.logger.WithCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(log.ContextWithLogger(c.Request.Context(), correlatedLogger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		routerService.logger.WithCorrelationID(c.Request.Context()).Info("HTTP request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	policy := routerService.policy

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if policy.hstsEnabled && servesHTTPS(c) {
			h.Set("Strict-Transport-Security", policy.hstsValue)
		}
		c.Next()
	}
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.policy.maxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware only adds headers for allowed origins. Same-origin form
// posts from the marketing site carry no Origin check and pass through.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	policy := routerService.policy

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if !policy.originAllowed(origin) {
			if origin != "" && len(policy.allowedOrigins) > 0 {
				routerService.logger.Warn("CORS origin not allowed", "origin", origin)
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
		h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(apperrors.StatusNoContent)
			return
		}

		c.Next()
	}
}

// timeoutMiddleware puts a deadline on the request context. The handler runs
// on the request goroutine, so the deadline is cooperative: storage calls
// observe it, and a 408 is written only if nothing was written yet.
func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), routerService.middlewareConfig.TimeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			routerService.logger.WithCorrelationID(c.Request.Context()).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(
				apperrors.StatusRequestTimeout,
				"Request timeout",
				nil,
			).ToJSON())
		}
	}
}

// limiterFor resolves the limiter for a route: handler override, then
// controller override, then the router default.
func (routerService *RouterService) limiterFor(handlerKey string, controller *RESTController) ratelimit.RateLimiter {
	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter
	}
	return routerService.rateLimiter
}

func setRateLimitHeaders(c *gin.Context, limit int, window time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Window", window.String())
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		handlerKey := routerService.keyForPathAndMethod(c.FullPath(), c.Request.Method)
		controller, found := routerService.handlerToControllerMap[handlerKey]

		if !found || controller == nil {
			// Unknown routes fall through to NoRoute/NoMethod; metrics and
			// OPTIONS preflights are not registered through controllers.
			c.Next()
			return
		}

		limiter := routerService.limiterFor(handlerKey, controller)
		limit, window := limiter.GetLimitDetails()
		setRateLimitHeaders(c, limit, window)

		// Limiters apply their own key prefix.
		limited, err := limiter.IsLimited(c.Request.Context(), clientIP)
		if err != nil {
			routerService.logger.Error("Rate limiter error; allowing request", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}

		if limited {
			routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "route", c.FullPath())

			retryAfterSeconds := max(int(math.Ceil(window.Seconds())), 1)
			retryAfter := strconv.Itoa(retryAfterSeconds)
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: retryAfter,
			}).ToJSON())
			return
		}

		c.Next()
	}
}

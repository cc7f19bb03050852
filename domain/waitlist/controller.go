package waitlist

import (
	"net/http"
	"strings"

	"github.com/akeren/caregiver-waitlist/config/router"
	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/pkg/constants"
	"github.com/akeren/caregiver-waitlist/pkg/factory"
	"github.com/akeren/caregiver-waitlist/pkg/ratelimit"
	"github.com/gin-gonic/gin/binding"
)

const submissionRateLimitPrefix = "ratelimit:waitlist:"

type ControllerConfig struct {
	// SuccessPath is where browser form posts are redirected on success.
	SuccessPath string
	// Cache decides the limiter: Redis-backed caches give a shared limiter.
	Cache  factory.Cache
	Logger *log.Logger
}

func NewWaitlistController(service WaitlistService, cfg ControllerConfig) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			submissionLimiter := createSubmissionRateLimiter(cfg)

			rs.AddPostHandler(c, submissionLimiter, "", createWaitlistEntryHandler(service, cfg.SuccessPath))
			rs.AddGetHandler(c, nil, "count", getWaitlistCountHandler(service))
		},
	)
}

func createSubmissionRateLimiter(cfg ControllerConfig) ratelimit.RateLimiter {
	return factory.NewRouteRateLimiter(constants.SubmissionRateLimitRequests, submissionRateLimitPrefix, cfg.Logger, cfg.Cache)
}

func createWaitlistEntryHandler(service WaitlistService, successPath string) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var raw RawSubmission
		if err := ctx.ShouldBind(&raw); err != nil {
			logger.Info("Failed to bind waitlist submission", "error", err)
			return router.BadRequestResult("Invalid request body", nil)
		}

		meta := RequestMeta{
			IPAddress: router.ClientIPOrDefault(ctx, UnknownRequestValue),
			UserAgent: router.UserAgentOrDefault(ctx, UnknownRequestValue),
		}

		result := service.Submit(ctx.Request.Context(), &raw, meta)

		switch result.Outcome {
		case OutcomeSucceeded:
			location := result.Completion.RedirectURL(successPath)
			if wantsRedirect(ctx) {
				return router.RedirectResult(http.StatusSeeOther, location)
			}
			result.Redirect = location
			return router.CreatedResult(result, "Waitlist entry")
		case OutcomeValidationFailed:
			return router.BadRequestResult(result.Message, result)
		case OutcomeDuplicateRejected:
			return router.ErrorResult(http.StatusConflict, result.Message, result)
		default:
			return router.ErrorResult(http.StatusInternalServerError, result.Message, result)
		}
	}
}

func getWaitlistCountHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		count := service.Count(ctx.Request.Context())
		return router.OKResult(CountResponse{Count: count}, "Waitlist count retrieved successfully")
	}
}

// wantsRedirect is true for browser form posts that did not ask for JSON.
func wantsRedirect(ctx *router.RequestContext) bool {
	switch ctx.ContentType() {
	case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		return !strings.Contains(ctx.GetHeader("Accept"), binding.MIMEJSON)
	default:
		return false
	}
}

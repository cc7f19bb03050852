package monitoring

import (
	"context"
	"time"

	"github.com/akeren/caregiver-waitlist/config/router"
	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/pkg/constants"
	"github.com/akeren/caregiver-waitlist/pkg/factory"
	"github.com/akeren/caregiver-waitlist/pkg/ratelimit"
)

const (
	healthCheckTimeout        = 2 * time.Second
	monitoringRateLimitPrefix = "ratelimit:monitoring:"
)

type Cache interface {
	Ping(ctx context.Context) error
}

// StorageProbe is satisfied by any waitlist repository.
type StorageProbe interface {
	CountEntries(ctx context.Context) (int, error)
}

type HealthStatus struct {
	Storage int    `json:"storage"` // 1 = healthy, 0 = unhealthy
	Cache   int    `json:"cache"`   // 1 = healthy, 0 = unhealthy/not configured
	Backend string `json:"backend"`
	Uptime  int    `json:"uptime"` // uptime in seconds
}

type MonitoringController struct {
	storage   StorageProbe
	backend   string
	logger    *log.Logger
	cache     Cache
	startTime time.Time
}

func NewMonitoringController(storage StorageProbe, backend string, logger *log.Logger, cache Cache) *router.RESTController {
	ctrl := &MonitoringController{
		storage:   storage,
		backend:   backend,
		logger:    logger,
		cache:     cache,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {

			monitoringRateLimiter := ctrl.createMonitoringRateLimiter()

			routerService.AddGetHandler(controller, monitoringRateLimiter, "", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.monitor(c)
			})

			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", func(c *router.RequestContext) *router.ServiceResult {
				return ctrl.healthCheck(routerService, c)
			})
		},
	)
}

func (ctrl *MonitoringController) createMonitoringRateLimiter() ratelimit.RateLimiter {
	return factory.NewRouteRateLimiter(constants.MonitoringRateLimitRequests, monitoringRateLimitPrefix, ctrl.logger, ctrl.cache)
}

func (ctrl *MonitoringController) healthCheck(
	routerService *router.RouterService,
	c *router.RequestContext,
) *router.ServiceResult {
	logger := routerService.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	healthStatus := ctrl.performHealthChecks(ctx, logger)

	return &router.ServiceResult{
		StatusCode: 200,
		Data:       healthStatus,
		Message:    "caregiver-waitlist health check completed",
	}
}

func (ctrl *MonitoringController) monitor(
	c *router.RequestContext,
) *router.ServiceResult {
	return &router.ServiceResult{
		StatusCode: 200,
		Data:       "Monitoring endpoint is operational.",
		Message:    "Monitoring successful",
	}
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Backend: ctrl.backend,
		Uptime:  int(time.Since(ctrl.startTime).Seconds()),
	}

	checkStorage(ctx, ctrl, &status, logger)

	checkCacheConnectivity(ctx, ctrl, &status, logger)

	return status
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache != nil {
		if ctrl.checkCache(ctx) {
			status.Cache = 1
			logger.Info("Cache health check passed")
		} else {
			status.Cache = 0
			logger.Error("Cache health check failed")
		}
	} else {
		status.Cache = 0 // Cache not configured
		logger.Info("Cache not configured, cache health check skipped")
	}
}

func checkStorage(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.storage == nil {
		logger.Error("Waitlist storage not configured")
		return
	}

	if _, err := ctrl.storage.CountEntries(ctx); err != nil {
		status.Storage = 0
		logger.Error("Storage health check failed", "backend", ctrl.backend, "error", err)
		return
	}

	status.Storage = 1
	logger.Info("Storage health check passed", "backend", ctrl.backend)
}

func (ctrl *MonitoringController) checkCache(ctx context.Context) bool {
	return ctrl.cache.Ping(ctx) == nil
}

package config

import (
	"context"
	"sync"
	"time"

	"github.com/akeren/caregiver-waitlist/config/router"
	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/pkg/constants"
	"github.com/akeren/caregiver-waitlist/pkg/utils"
)

const shutdownTimeout = 5 * time.Second

// ApplicationConfig is everything the server process owns for its lifetime.
// Cleanup releases it in reverse order of acquisition.
type ApplicationConfig struct {
	RouterService *router.RouterService
	Logger        *log.Logger
	Cache         Cache
	Config        *AppConfig
	Waitlist      *WaitlistStorageConfig

	mu      sync.Mutex
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// AppConfig holds the HTTP-level limits applied to every route.
type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests: int(utils.GetEnvPositiveInt64OrDefault("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests)),
		RateLimitWindow:   utils.GetEnvDurationOrDefault("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:    utils.GetEnvDurationOrDefault("REQUEST_TIMEOUT", router.DefaultTimeoutDuration),
	}
}

// RegisterCloser queues a resource opened after configuration load (storage
// handles, for instance).
func (ac *ApplicationConfig) RegisterCloser(name string, closeFn func() error) {
	if closeFn == nil {
		return
	}

	ac.register(name, func(context.Context) error { return closeFn() })
}

func (ac *ApplicationConfig) register(name string, closeFn func(context.Context) error) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.closers = append(ac.closers, namedCloser{name: name, close: closeFn})
}

func (ac *ApplicationConfig) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	ac.mu.Lock()
	closers := ac.closers
	ac.closers = nil
	ac.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(ctx); err != nil {
			ac.Logger.Error("Failed to close resource", "resource", closers[i].name, "error", err)
		}
	}

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	if ac.Cache != nil {
		_ = CloseCache(ac.Cache, ac.Logger)
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(context.Background(), NewTracingConfig(), logger)
	if err != nil {
		return nil, err
	}

	waitlistConfig := NewWaitlistStorageConfig()
	waitlistConfig.AutoMigrate = autoMigrate

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrFallback(logger)

	routerService := router.CreateRouterService(logger, cache, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
	})

	logger.Info("Application configuration loaded successfully",
		"app_env", waitlistConfig.AppEnv,
		"waitlist_store", waitlistConfig.Store,
	)

	ac := &ApplicationConfig{
		RouterService: routerService,
		Logger:        logger,
		Cache:         cache,
		Config:        appConfig,
		Waitlist:      waitlistConfig,
	}
	if tracingShutdown != nil {
		// Registered first so spans from closing storage are still exported.
		ac.register("tracer provider", tracingShutdown)
	}

	return ac, nil
}

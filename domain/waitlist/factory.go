package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/caregiver-waitlist/config"
	"github.com/akeren/caregiver-waitlist/config/router"
	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/internal/models"
	"github.com/akeren/caregiver-waitlist/pkg/circuitbreaker"
	"github.com/go-redis/redis/v8"
)

type StorageBackend string

const (
	BackendAuto     StorageBackend = "auto"
	BackendFile     StorageBackend = "file"
	BackendSQLite   StorageBackend = "sqlite"
	BackendRedis    StorageBackend = "redis"
	BackendMemory   StorageBackend = "memory"
	BackendDatabase StorageBackend = "database"
)

// ResolveBackend is the single storage selection decision. With "auto" (or
// empty), a configured database URL in production selects the database
// backend; every other combination uses the JSON file.
func ResolveBackend(cfg *config.WaitlistStorageConfig) (StorageBackend, error) {
	backend := StorageBackend(strings.ToLower(strings.TrimSpace(cfg.Store)))

	switch backend {
	case "", BackendAuto:
		if cfg.DatabaseURL != "" && cfg.IsProduction() {
			return BackendDatabase, nil
		}
		return BackendFile, nil
	case BackendFile, BackendSQLite, BackendRedis, BackendMemory, BackendDatabase:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown WAITLIST_STORE %q (expected auto, file, sqlite, redis, memory or database)", cfg.Store)
	}
}

type StorageDependencies struct {
	Logger      *log.Logger
	RedisClient *redis.Client
}

// Storage is an opened, probed repository together with its backend name and
// a close function for whatever it holds open.
type Storage struct {
	Repository WaitlistRepository
	Backend    StorageBackend
	Close      func() error
}

// NewStorage opens the configured backend and runs a readiness probe
// (CountEntries) so a broken or unimplemented store fails at startup rather
// than on the first submission.
func NewStorage(ctx context.Context, cfg *config.WaitlistStorageConfig, deps StorageDependencies) (*Storage, error) {
	backend, err := ResolveBackend(cfg)
	if err != nil {
		return nil, err
	}

	storage, err := openStorage(backend, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("open waitlist storage %q: %w", backend, err)
	}

	timeout := cfg.StorageTimeout
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := storage.Repository.CountEntries(probeCtx); err != nil {
		if closeErr := storage.Close(); closeErr != nil {
			deps.Logger.Error("Failed to close waitlist storage after failed probe", "backend", backend, "error", closeErr)
		}
		return nil, fmt.Errorf("waitlist storage %q is not ready: %w", backend, err)
	}

	deps.Logger.Info("Waitlist storage ready", "backend", backend)
	return storage, nil
}

func openStorage(backend StorageBackend, cfg *config.WaitlistStorageConfig, deps StorageDependencies) (*Storage, error) {
	noop := func() error { return nil }

	switch backend {
	case BackendFile:
		return &Storage{
			Repository: NewFileRepository(FileRepositoryConfig{
				Dir:         cfg.DataDir,
				FileName:    cfg.FileName,
				LockTimeout: cfg.LockTimeout,
			}),
			Backend: backend,
			Close:   noop,
		}, nil

	case BackendMemory:
		return &Storage{Repository: NewMemoryRepository(), Backend: backend, Close: noop}, nil

	case BackendSQLite:
		db, err := config.NewSQLiteDatabase(deps.Logger, cfg.SQLitePath, nil)
		if err != nil {
			return nil, err
		}

		closeDB := func() error { return config.CloseDatabase(db, deps.Logger) }

		if cfg.AutoMigrate {
			if err := config.AutoMigrate(deps.Logger, db, models.ModelRegistry...); err != nil {
				closeDB()
				return nil, err
			}
		}

		return &Storage{Repository: NewSQLiteRepository(db), Backend: backend, Close: closeDB}, nil

	case BackendRedis:
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("redis backend selected but no Redis client is available (set REDIS_HOST)")
		}

		breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 2,
			// A caller giving up says nothing about Redis health.
			IsFailure: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
			OnStateChange: func(from, to circuitbreaker.CircuitState) {
				deps.Logger.Warn("Waitlist Redis circuit changed state", "from", from.String(), "to", to.String())
			},
		})

		// The client belongs to the application cache and is closed with it.
		return &Storage{
			Repository: NewRedisRepository(deps.RedisClient, DefaultRedisKeyPrefix, breaker),
			Backend:    backend,
			Close:      noop,
		}, nil

	case BackendDatabase:
		return &Storage{Repository: NewDatabaseRepository(cfg.DatabaseURL), Backend: backend, Close: noop}, nil
	}

	return nil, fmt.Errorf("unsupported waitlist storage backend %q", backend)
}

type WaitlistServiceFactory interface {
	Storage() *Storage
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	appConfig *config.ApplicationConfig
	storage   *Storage
}

// NewWaitlistServiceFactory opens storage for the application and registers
// its closer with appConfig.
func NewWaitlistServiceFactory(ctx context.Context, appConfig *config.ApplicationConfig) (WaitlistServiceFactory, error) {
	storage, err := NewStorage(ctx, appConfig.Waitlist, StorageDependencies{
		Logger:      appConfig.Logger,
		RedisClient: config.GetRedisClient(appConfig.Cache),
	})
	if err != nil {
		return nil, err
	}

	appConfig.RegisterCloser("waitlist storage", storage.Close)

	return &DefaultWaitlistServiceFactory{
		appConfig: appConfig,
		storage:   storage,
	}, nil
}

func (f *DefaultWaitlistServiceFactory) Storage() *Storage {
	return f.storage
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	opts := &ServiceOptions{
		CountCacheTTL:  f.appConfig.Waitlist.CountCacheTTL,
		StorageTimeout: f.appConfig.Waitlist.StorageTimeout,
	}

	if f.appConfig.Cache != nil {
		opts.Cache = f.appConfig.Cache
	}

	if f.appConfig.RouterService != nil {
		opts.Metrics = f.appConfig.RouterService.MetricsRegisterer()
	}

	return NewWaitlistService(f.appConfig.Logger, f.storage.Repository, opts)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), ControllerConfig{
		SuccessPath: f.appConfig.Waitlist.SuccessPath,
		Cache:       f.appConfig.Cache,
		Logger:      f.appConfig.Logger,
	})
}

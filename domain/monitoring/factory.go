package monitoring

import (
	"github.com/akeren/caregiver-waitlist/config/router"
	"github.com/akeren/caregiver-waitlist/internal/log"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	storage StorageProbe
	backend string
	logger  *log.Logger
	cache   Cache
}

func NewMonitoringControllerFactory(storage StorageProbe, backend string, logger *log.Logger, cache Cache) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		storage: storage,
		backend: backend,
		logger:  logger,
		cache:   cache,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.storage, f.backend, f.logger, f.cache)
}

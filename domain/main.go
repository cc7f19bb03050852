package domain

import (
	"context"

	"github.com/akeren/caregiver-waitlist/config"
	"github.com/akeren/caregiver-waitlist/domain/monitoring"
	"github.com/akeren/caregiver-waitlist/domain/waitlist"
)

func SetupCoreDomain(ctx context.Context, appConfig *config.ApplicationConfig) error {
	waitlistFactory, err := waitlist.NewWaitlistServiceFactory(ctx, appConfig)
	if err != nil {
		return err
	}

	storage := waitlistFactory.Storage()

	appConfig.RouterService.MountController(
		monitoring.NewMonitoringControllerFactory(storage.Repository, string(storage.Backend), appConfig.Logger, appConfig.Cache).CreateController(),
	)
	appConfig.RouterService.MountController(waitlistFactory.CreateController())

	return nil
}

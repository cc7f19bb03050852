package waitlist

import (
	"context"

	"github.com/akeren/caregiver-waitlist/internal/models"
)

// databaseRepository is selected when a database URL is configured in
// production. No relational schema is wired yet, so every operation fails
// with ErrStorageNotImplemented; the startup probe surfaces that immediately.
type databaseRepository struct {
	databaseURL string
}

func NewDatabaseRepository(databaseURL string) WaitlistRepository {
	return &databaseRepository{databaseURL: databaseURL}
}

func (dr *databaseRepository) CreateEntry(context.Context, *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	return nil, newNotImplementedError("create")
}

func (dr *databaseRepository) FindEntryByEmail(context.Context, string) (*models.WaitlistEntry, bool, error) {
	return nil, false, newNotImplementedError("findByEmail")
}

func (dr *databaseRepository) GetAllEntries(context.Context) ([]*models.WaitlistEntry, error) {
	return nil, newNotImplementedError("getAll")
}

func (dr *databaseRepository) CountEntries(context.Context) (int, error) {
	return 0, newNotImplementedError("count")
}

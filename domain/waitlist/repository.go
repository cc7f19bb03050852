package waitlist

import (
	"context"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/google/uuid"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

type WaitlistRepository interface {
	// CreateEntry assigns ID and SubmittedAt and persists the entry. It fails
	// with ErrDuplicateEmail, leaving the store untouched, when the email is
	// already registered.
	CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// FindEntryByEmail matches the stored email exactly. found is false when
	// no entry exists; that is not an error.
	FindEntryByEmail(ctx context.Context, email string) (entry *models.WaitlistEntry, found bool, err error)
	// GetAllEntries returns every entry in insertion order.
	GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error)
	CountEntries(ctx context.Context) (int, error)
}

// checkStorable rejects entries the submission rules would not accept.
func checkStorable(entry *models.WaitlistEntry) error {
	if fieldErrors := ValidateEntry(entry); fieldErrors.HasErrors() {
		return apperrors.NewInvalidRequestError(ErrInvalidEntry.Error(), ErrInvalidEntry)
	}

	return nil
}

// stampEntry copies entry and assigns the identity fields. Timestamps are kept
// at millisecond precision so they survive the ISO-8601 round trip unchanged.
func stampEntry(entry *models.WaitlistEntry, now time.Time) *models.WaitlistEntry {
	stored := *entry
	stored.ID = uuid.NewString()
	stored.SubmittedAt = now.UTC().Truncate(time.Millisecond)

	return &stored
}

func cloneEntry(entry *models.WaitlistEntry) *models.WaitlistEntry {
	if entry == nil {
		return nil
	}

	copied := *entry
	return &copied
}

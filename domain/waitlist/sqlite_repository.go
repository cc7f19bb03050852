package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"gorm.io/gorm"
)

// sqliteRepository relies on the unique index on email: the INSERT itself is
// the atomic check-and-append, so no explicit locking is needed.
type sqliteRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLiteRepository(db *gorm.DB) WaitlistRepository {
	return &sqliteRepository{db: db, now: time.Now}
}

func (sr *sqliteRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := checkStorable(entry); err != nil {
		return nil, err
	}

	stored := stampEntry(entry, sr.now())

	if err := sr.db.WithContext(ctx).Create(stored).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, newDuplicateEmailError()
		}
		return nil, apperrors.NewDatabaseError("unable to create waitlist entry", err)
	}

	return stored, nil
}

func (sr *sqliteRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, bool, error) {
	var entry models.WaitlistEntry

	if err := sr.db.WithContext(ctx).Where("email = ?", email).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return &entry, true, nil
}

func (sr *sqliteRepository) GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	var entries []*models.WaitlistEntry

	if err := sr.db.WithContext(ctx).Order("rowid ASC").Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist entries", err)
	}

	return entries, nil
}

func (sr *sqliteRepository) CountEntries(ctx context.Context) (int, error) {
	var count int64

	if err := sr.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}

	return int(count), nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}

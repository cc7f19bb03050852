package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(email string) *models.WaitlistEntry {
	name := "Jane"
	return &models.WaitlistEntry{
		Name:      &name,
		Email:     email,
		Role:      models.RoleCaregiver,
		Consent:   true,
		IPAddress: "192.0.2.10",
		UserAgent: "test-agent",
	}
}

// runRepositoryContract exercises the behaviour every WaitlistRepository
// implementation must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) WaitlistRepository) {
	t.Run("empty store", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		entries, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)

		count, err := repo.CountEntries(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		entry, found, err := repo.FindEntryByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, entry)
	})

	t.Run("create assigns identity and can be found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		before := time.Now().UTC().Truncate(time.Millisecond)

		created, err := repo.CreateEntry(ctx, newTestEntry("jane@example.com"))
		require.NoError(t, err)

		_, parseErr := uuid.Parse(created.ID)
		assert.NoError(t, parseErr)
		assert.False(t, created.SubmittedAt.Before(before))
		assert.False(t, created.SubmittedAt.After(time.Now().UTC()))

		found, ok, err := repo.FindEntryByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created.ID, found.ID)
		assert.True(t, created.SubmittedAt.Equal(found.SubmittedAt))
		assert.Equal(t, "Jane", *found.Name)
		assert.Equal(t, "192.0.2.10", found.IPAddress)
		assert.Equal(t, "test-agent", found.UserAgent)
		assert.False(t, ValidateEntry(found).HasErrors())
	})

	t.Run("duplicate email is rejected without a partial write", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.CreateEntry(ctx, newTestEntry("dup@example.com"))
		require.NoError(t, err)

		again := newTestEntry("dup@example.com")
		again.Role = models.RolePartner
		_, err = repo.CreateEntry(ctx, again)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateEmail))
		assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))

		count, err := repo.CountEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		stored, _, err := repo.FindEntryByEmail(ctx, "dup@example.com")
		require.NoError(t, err)
		assert.Equal(t, models.RoleCaregiver, stored.Role)
	})

	t.Run("email match is case sensitive", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.CreateEntry(ctx, newTestEntry("Case@example.com"))
		require.NoError(t, err)
		_, err = repo.CreateEntry(ctx, newTestEntry("case@example.com"))
		require.NoError(t, err)

		_, found, err := repo.FindEntryByEmail(ctx, "CASE@example.com")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("entries keep insertion order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		emails := []string{"c@example.com", "a@example.com", "b@example.com"}

		for _, email := range emails {
			_, err := repo.CreateEntry(ctx, newTestEntry(email))
			require.NoError(t, err)
		}

		entries, err := repo.GetAllEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, len(emails))
		for i, entry := range entries {
			assert.Equal(t, emails[i], entry.Email)
		}

		count, err := repo.CountEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(emails), count)
	})

	t.Run("invalid entries are refused", func(t *testing.T) {
		repo := newRepo(t)
		entry := newTestEntry("no-consent@example.com")
		entry.Consent = false

		_, err := repo.CreateEntry(context.Background(), entry)
		assert.True(t, errors.Is(err, ErrInvalidEntry))

		count, err := repo.CountEntries(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestMemoryRepository_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) WaitlistRepository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	created, err := repo.CreateEntry(ctx, newTestEntry("copy@example.com"))
	require.NoError(t, err)
	created.Role = "mutated"

	stored, _, err := repo.FindEntryByEmail(ctx, "copy@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCaregiver, stored.Role)
}

func TestDatabaseRepository_EveryOperationIsNotImplemented(t *testing.T) {
	repo := NewDatabaseRepository("postgres://example")
	ctx := context.Background()

	_, err := repo.CreateEntry(ctx, newTestEntry("db@example.com"))
	assertNotImplemented(t, err)

	_, found, err := repo.FindEntryByEmail(ctx, "db@example.com")
	assert.False(t, found)
	assertNotImplemented(t, err)

	_, err = repo.GetAllEntries(ctx)
	assertNotImplemented(t, err)

	_, err = repo.CountEntries(ctx)
	assertNotImplemented(t, err)
}

func assertNotImplemented(t *testing.T, err error) {
	t.Helper()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageNotImplemented))
	assert.Equal(t, apperrors.ErrorTypeNotImplemented, apperrors.GetErrorType(err))
	assert.Equal(t, apperrors.StatusNotImplemented, apperrors.HTTPStatusCode(err))
}

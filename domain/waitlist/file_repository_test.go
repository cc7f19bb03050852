package waitlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestFileRepository(t *testing.T) (WaitlistRepository, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	repo := NewFileRepository(FileRepositoryConfig{Dir: dir, LockTimeout: 10 * time.Second})
	return repo, filepath.Join(dir, DefaultFileName)
}

func TestFileRepository_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) WaitlistRepository {
		repo, _ := newTestFileRepository(t)
		return repo
	})
}

func TestFileRepository_MissingFileIsEmptyAndDirectoryIsCreatedOnWrite(t *testing.T) {
	repo, path := newTestFileRepository(t)
	ctx := context.Background()

	count, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, statErr := os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(statErr), "reads must not create the data directory")

	_, err = repo.CreateEntry(ctx, newTestEntry("first@example.com"))
	require.NoError(t, err)

	_, statErr = os.Stat(path)
	assert.NoError(t, statErr)
}

func TestFileRepository_OnDiskFormat(t *testing.T) {
	repo, path := newTestFileRepository(t)
	ctx := context.Background()

	withoutName := newTestEntry("plain@example.com")
	withoutName.Name = nil
	created, err := repo.CreateEntry(ctx, withoutName)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)

	record := raw[0]
	assert.Equal(t, created.ID, record["id"])
	assert.Equal(t, "plain@example.com", record["email"])
	assert.Equal(t, "caregiver", record["role"])
	assert.Equal(t, true, record["consent"])
	assert.NotContains(t, record, "name")
	assert.NotContains(t, record, "challenge")

	submittedAt, ok := record["submittedAt"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, submittedAt)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(created.SubmittedAt))
}

func TestFileRepository_RoundTripsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := NewFileRepository(FileRepositoryConfig{Dir: dir})
	created, err := first.CreateEntry(ctx, newTestEntry("persist@example.com"))
	require.NoError(t, err)

	second := NewFileRepository(FileRepositoryConfig{Dir: dir})
	entries, err := second.GetAllEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].ID)
	assert.True(t, created.SubmittedAt.Equal(entries[0].SubmittedAt))

	_, err = second.CreateEntry(ctx, newTestEntry("persist@example.com"))
	assert.True(t, IsDuplicateEmail(err))
}

func TestFileRepository_DuplicateLeavesFileUntouched(t *testing.T) {
	repo, path := newTestFileRepository(t)
	ctx := context.Background()

	_, err := repo.CreateEntry(ctx, newTestEntry("same@example.com"))
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = repo.CreateEntry(ctx, newTestEntry("same@example.com"))
	require.True(t, IsDuplicateEmail(err))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileRepository_LeavesNoTempFiles(t *testing.T) {
	repo, path := newTestFileRepository(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.CreateEntry(ctx, newTestEntry(fmt.Sprintf("user%d@example.com", i)))
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileRepository_CorruptFileIsAStorageFailure(t *testing.T) {
	repo, path := newTestFileRepository(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := repo.GetAllEntries(ctx)
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))

	_, err = repo.CreateEntry(ctx, newTestEntry("x@example.com"))
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
}

func TestFileRepository_ConcurrentCreates(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	repo, _ := newTestFileRepository(t)
	ctx := context.Background()

	const distinct = 20
	const contenders = 8

	var wg sync.WaitGroup
	var mu sync.Mutex
	sharedWins, sharedDuplicates := 0, 0

	for i := 0; i < distinct; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CreateEntry(ctx, newTestEntry(fmt.Sprintf("user%02d@example.com", i)))
			assert.NoError(t, err)
		}(i)
	}

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateEntry(ctx, newTestEntry("shared@example.com"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sharedWins++
			case IsDuplicateEmail(err):
				sharedDuplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, sharedWins)
	assert.Equal(t, contenders-1, sharedDuplicates)

	entries, err := repo.GetAllEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, distinct+1)

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		assert.False(t, seen[entry.Email], "duplicate email %s in store", entry.Email)
		seen[entry.Email] = true
	}
}

func TestFileRepository_CanceledContext(t *testing.T) {
	repo, _ := newTestFileRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.CreateEntry(ctx, newTestEntry("late@example.com"))
	require.Error(t, err)

	_, err = repo.GetAllEntries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileRepository_IgnoresUnrelatedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	legacy := `[{"id":"legacy-1","email":"old@example.com","role":"other","consent":true,"submittedAt":"2024-01-02T03:04:05.678Z","extra":"x"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	repo := NewFileRepository(FileRepositoryConfig{Dir: dir})
	entry, found, err := repo.FindEntryByEmail(context.Background(), "old@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "legacy-1", entry.ID)
	assert.Equal(t, models.RoleOther, entry.Role)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC), entry.SubmittedAt.UTC())
}

package waitlist

import (
	"context"
	"sync"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
)

// memoryRepository keeps entries in process memory. It backs WAITLIST_STORE=memory
// and is the fake used by handler tests.
type memoryRepository struct {
	mu      sync.RWMutex
	entries []*models.WaitlistEntry
	byEmail map[string]int
	now     func() time.Time
}

func NewMemoryRepository() WaitlistRepository {
	return &memoryRepository{
		byEmail: make(map[string]int),
		now:     time.Now,
	}
}

func (mr *memoryRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkStorable(entry); err != nil {
		return nil, err
	}

	mr.mu.Lock()
	defer mr.mu.Unlock()

	if _, exists := mr.byEmail[entry.Email]; exists {
		return nil, newDuplicateEmailError()
	}

	stored := stampEntry(entry, mr.now())
	mr.byEmail[stored.Email] = len(mr.entries)
	mr.entries = append(mr.entries, stored)

	return cloneEntry(stored), nil
}

func (mr *memoryRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	mr.mu.RLock()
	defer mr.mu.RUnlock()

	idx, ok := mr.byEmail[email]
	if !ok {
		return nil, false, nil
	}

	return cloneEntry(mr.entries[idx]), true, nil
}

func (mr *memoryRepository) GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mr.mu.RLock()
	defer mr.mu.RUnlock()

	entries := make([]*models.WaitlistEntry, 0, len(mr.entries))
	for _, entry := range mr.entries {
		entries = append(entries, cloneEntry(entry))
	}

	return entries, nil
}

func (mr *memoryRepository) CountEntries(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	mr.mu.RLock()
	defer mr.mu.RUnlock()

	return len(mr.entries), nil
}

package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/akeren/caregiver-waitlist/pkg/filelock"
	"github.com/akeren/caregiver-waitlist/pkg/retry"
)

const (
	DefaultFileName    = "waitlist.json"
	DefaultLockTimeout = 3 * time.Second
)

type FileRepositoryConfig struct {
	Dir      string
	FileName string
	// LockTimeout bounds how long CreateEntry waits for the in-process and
	// cross-process locks.
	LockTimeout time.Duration
}

// fileRepository stores every entry in a single JSON array file. Writers are
// serialized in-process by sem and across processes by an flock on a sidecar
// "<file>.lock"; the data file is only ever replaced by rename, so readers
// never see a partial write and do not take the lock.
type fileRepository struct {
	path        string
	lock        *filelock.Lock
	sem         chan struct{}
	acquire     retry.RetryPolicy
	lockTimeout time.Duration
	now         func() time.Time
}

func NewFileRepository(cfg FileRepositoryConfig) WaitlistRepository {
	fileName := cfg.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}

	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	path := filepath.Join(cfg.Dir, fileName)

	return &fileRepository{
		path: path,
		lock: filelock.New(path + ".lock"),
		sem:  make(chan struct{}, 1),
		acquire: retry.NewExponentialBackoff(&retry.Config{
			MaxAttempts: 0,
			BaseDelay:   10 * time.Millisecond,
			MaxDelay:    200 * time.Millisecond,
			Multiplier:  2,
			Jitter:      true,
			Retryable: func(err error) bool {
				return errors.Is(err, filelock.ErrLocked)
			},
		}),
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

func (fr *fileRepository) Path() string {
	return fr.path
}

func (fr *fileRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if err := checkStorable(entry); err != nil {
		return nil, err
	}

	var stored *models.WaitlistEntry

	err := fr.withLock(ctx, func() error {
		entries, err := fr.readAll()
		if err != nil {
			return apperrors.NewDatabaseError("unable to read waitlist store", err)
		}

		for _, existing := range entries {
			if existing.Email == entry.Email {
				return newDuplicateEmailError()
			}
		}

		stored = stampEntry(entry, fr.now())

		if err := fr.writeAll(append(entries, stored)); err != nil {
			return apperrors.NewDatabaseError("unable to write waitlist store", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cloneEntry(stored), nil
}

func (fr *fileRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	entries, err := fr.readAll()
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("unable to read waitlist store", err)
	}

	for _, entry := range entries {
		if entry.Email == email {
			return entry, true, nil
		}
	}

	return nil, false, nil
}

func (fr *fileRepository) GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := fr.readAll()
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to read waitlist store", err)
	}

	return entries, nil
}

func (fr *fileRepository) CountEntries(ctx context.Context) (int, error) {
	entries, err := fr.GetAllEntries(ctx)
	if err != nil {
		return 0, err
	}

	return len(entries), nil
}

// withLock runs fn holding both the process semaphore and the file lock.
func (fr *fileRepository) withLock(ctx context.Context, fn func() error) (err error) {
	lockCtx, cancel := context.WithTimeout(ctx, fr.lockTimeout)
	defer cancel()

	select {
	case fr.sem <- struct{}{}:
	case <-lockCtx.Done():
		return apperrors.NewRequestTimeoutError("timed out waiting for waitlist store", lockCtx.Err())
	}
	defer func() { <-fr.sem }()

	if lockErr := fr.acquire.Do(lockCtx, fr.lock.TryLock); lockErr != nil {
		if lockCtx.Err() != nil {
			return apperrors.NewRequestTimeoutError("timed out waiting for waitlist file lock", lockErr)
		}
		return apperrors.NewDatabaseError("unable to lock waitlist store", lockErr)
	}
	defer func() {
		if unlockErr := fr.lock.Unlock(); unlockErr != nil && err == nil {
			err = apperrors.NewDatabaseError("unable to unlock waitlist store", unlockErr)
		}
	}()

	return fn()
}

// readAll treats a missing or empty file as an empty store.
func (fr *fileRepository) readAll() ([]*models.WaitlistEntry, error) {
	data, err := os.ReadFile(fr.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.WaitlistEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fr.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []*models.WaitlistEntry{}, nil
	}

	var entries []*models.WaitlistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fr.path, err)
	}

	if entries == nil {
		entries = []*models.WaitlistEntry{}
	}

	return entries, nil
}

// writeAll replaces the data file atomically: write a temp file in the same
// directory, fsync it, then rename over the original.
func (fr *fileRepository) writeAll(entries []*models.WaitlistEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode waitlist: %w", err)
	}

	dir := filepath.Dir(fr.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fr.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, fr.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}

package migrations

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *testLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(string, ...any) {}

type fakeMigrator struct {
	upErr error
}

func (m *fakeMigrator) Up() error             { return m.upErr }
func (m *fakeMigrator) Close() (error, error) { return nil, nil }

type blockingMigrator struct {
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// stubFactories swaps the driver and migrator constructors for the duration
// of the test and records the source URL Up built.
func stubFactories(t *testing.T, m migrator, initErr error) *string {
	t.Helper()

	origDriverFactory := driverFactory
	origMigratorFactory := migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriverFactory
		migratorFactory = origMigratorFactory
	})

	var sourceURL string
	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		assert.NotEmpty(t, cfg.MigrationsTable)
		return nil, nil
	}
	migratorFactory = func(u string, _ database.Driver) (migrator, error) {
		sourceURL = u
		if initErr != nil {
			return nil, initErr
		}
		return m, nil
	}

	return &sourceURL
}

func TestUp_NilDB(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil, Config{}))
}

func TestUp_ContextAlreadyCancelled(t *testing.T) {
	sourceURL := stubFactories(t, &fakeMigrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *sourceURL, "no migrator should be created")
}

func TestUp_DeadlineClosesMigrator(t *testing.T) {
	block := &blockingMigrator{closeCh: make(chan struct{})}
	stubFactories(t, block, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, block.closed.Load())
}

func TestUp_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		upErr   error
		wantErr bool
		wantLog string
	}{
		{name: "no change", upErr: migrate.ErrNoChange, wantLog: "No migrations to apply"},
		{name: "applied", upErr: nil, wantLog: "Migrations applied successfully"},
		{name: "failed", upErr: errors.New("dirty database"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubFactories(t, &fakeMigrator{upErr: tt.upErr}, nil)
			logger := &testLogger{}

			err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger})
			if tt.wantErr {
				assert.ErrorContains(t, err, "migrations: up")
				return
			}

			require.NoError(t, err)
			assert.Contains(t, logger.infos, tt.wantLog)
		})
	}
}

func TestUp_MigratorInitError(t *testing.T) {
	stubFactories(t, nil, errors.New("boom"))

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "migrations: init")
}

func TestUp_SourceURLEscapesPath(t *testing.T) {
	sourceURL := stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange}, nil)

	dir := filepath.Join(t.TempDir(), "my migrations dir")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Dir: dir}))

	parsed, err := url.Parse(*sourceURL)
	require.NoError(t, err)
	assert.Equal(t, "file", parsed.Scheme)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, filepath.ToSlash(abs), parsed.Path)
}

func openSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return sqlDB
}

func TestUp_AppliesWaitlistSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waitlist.db")
	logger := &testLogger{}
	cfg := Config{Dir: filepath.Join("..", "..", "migrations"), Logger: logger}

	require.NoError(t, Up(context.Background(), openSQLite(t, path), cfg))

	// The sqlite3 driver closes the handle it was given.
	db := openSQLite(t, path)

	_, err := db.Exec(`INSERT INTO waitlist_entries (id, email, role, consent, submitted_at) VALUES ('1', 'a@example.com', 'caregiver', 1, '2025-01-01 00:00:00')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO waitlist_entries (id, email, role, consent, submitted_at) VALUES ('2', 'a@example.com', 'other', 1, '2025-01-01 00:00:00')`)
	assert.Error(t, err, "email must be unique")

	require.NoError(t, Up(context.Background(), db, cfg))
	assert.Contains(t, logger.infos, "No migrations to apply")
}

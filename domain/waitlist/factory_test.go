package waitlist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akeren/caregiver-waitlist/config"
	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorageConfig(t *testing.T) *config.WaitlistStorageConfig {
	t.Helper()

	dir := t.TempDir()
	return &config.WaitlistStorageConfig{
		Store:          "auto",
		DataDir:        dir,
		FileName:       DefaultFileName,
		SQLitePath:     filepath.Join(dir, "waitlist.db"),
		StorageTimeout: time.Second,
		LockTimeout:    time.Second,
		CountCacheTTL:  time.Minute,
		SuccessPath:    "/waitlist/thank-you",
	}
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name        string
		store       string
		appEnv      string
		databaseURL string
		want        StorageBackend
		wantErr     bool
	}{
		{name: "development without database", store: "auto", appEnv: "development", want: BackendFile},
		{name: "development with database", store: "auto", appEnv: "development", databaseURL: "postgres://db", want: BackendFile},
		{name: "production without database", store: "auto", appEnv: "production", want: BackendFile},
		{name: "production with database", store: "auto", appEnv: "production", databaseURL: "postgres://db", want: BackendDatabase},
		{name: "prod alias with database", store: "", appEnv: "prod", databaseURL: "postgres://db", want: BackendDatabase},
		{name: "explicit sqlite", store: "sqlite", appEnv: "production", databaseURL: "postgres://db", want: BackendSQLite},
		{name: "explicit redis", store: "Redis", want: BackendRedis},
		{name: "explicit memory", store: "memory", want: BackendMemory},
		{name: "unknown", store: "mongo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.WaitlistStorageConfig{Store: tt.store, AppEnv: tt.appEnv, DatabaseURL: tt.databaseURL}

			got, err := ResolveBackend(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewStorage_FileBackendIsReady(t *testing.T) {
	cfg := newTestStorageConfig(t)

	storage, err := NewStorage(context.Background(), cfg, StorageDependencies{Logger: log.NewLoggerWithJSONOutput()})
	require.NoError(t, err)
	defer storage.Close()

	assert.Equal(t, BackendFile, storage.Backend)

	_, err = storage.Repository.CreateEntry(context.Background(), newTestEntry("factory@example.com"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.DataDir, DefaultFileName))
}

func TestNewStorage_DatabasePlaceholderFailsAtStartup(t *testing.T) {
	cfg := newTestStorageConfig(t)
	cfg.AppEnv = "production"
	cfg.DatabaseURL = "postgres://db/waitlist"

	storage, err := NewStorage(context.Background(), cfg, StorageDependencies{Logger: log.NewLoggerWithJSONOutput()})

	assert.Nil(t, storage)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageNotImplemented))
	assert.Contains(t, err.Error(), `"database" is not ready`)
}

func TestNewStorage_RedisWithoutClient(t *testing.T) {
	cfg := newTestStorageConfig(t)
	cfg.Store = "redis"

	_, err := NewStorage(context.Background(), cfg, StorageDependencies{Logger: log.NewLoggerWithJSONOutput()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_HOST")
}

func TestNewStorage_SQLite(t *testing.T) {
	t.Run("with auto-migrate", func(t *testing.T) {
		cfg := newTestStorageConfig(t)
		cfg.Store = "sqlite"
		cfg.AutoMigrate = true

		storage, err := NewStorage(context.Background(), cfg, StorageDependencies{Logger: log.NewLoggerWithJSONOutput()})
		require.NoError(t, err)
		defer storage.Close()

		assert.Equal(t, BackendSQLite, storage.Backend)

		_, err = storage.Repository.CreateEntry(context.Background(), newTestEntry("sqlite@example.com"))
		require.NoError(t, err)

		count, err := storage.Repository.CountEntries(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("without schema the probe fails", func(t *testing.T) {
		cfg := newTestStorageConfig(t)
		cfg.Store = "sqlite"

		_, err := NewStorage(context.Background(), cfg, StorageDependencies{Logger: log.NewLoggerWithJSONOutput()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not ready")
	})
}

func TestNewStorage_UnknownBackend(t *testing.T) {
	cfg := newTestStorageConfig(t)
	cfg.Store = "cassandra"

	_, err := NewStorage(context.Background(), cfg, StorageDependencies{Logger: log.NewLoggerWithJSONOutput()})
	assert.Error(t, err)
}

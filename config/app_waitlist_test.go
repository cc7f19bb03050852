package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWaitlistStorageConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"WAITLIST_STORE", "WAITLIST_DATA_DIR", "WAITLIST_FILE_NAME", "WAITLIST_SQLITE_PATH",
		"WAITLIST_STORAGE_TIMEOUT", "WAITLIST_LOCK_TIMEOUT", "WAITLIST_COUNT_CACHE_TTL",
		"WAITLIST_SUCCESS_PATH", "DATABASE_URL", "APP_DATABASE_URL", "APP_ENV",
	} {
		t.Setenv(key, "")
	}

	cfg := NewWaitlistStorageConfig()

	assert.Equal(t, "auto", cfg.Store)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "waitlist.json"), cfg.FilePath())
	assert.Equal(t, filepath.Join("data", "waitlist.db"), cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, time.Minute, cfg.CountCacheTTL)
	assert.Equal(t, "/waitlist/thank-you", cfg.SuccessPath)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.IsProduction())
}

func TestNewWaitlistStorageConfig_Overrides(t *testing.T) {
	t.Setenv("WAITLIST_STORE", " SQLite ")
	t.Setenv("WAITLIST_DATA_DIR", "/var/lib/waitlist")
	t.Setenv("WAITLIST_SQLITE_PATH", "")
	t.Setenv("WAITLIST_STORAGE_TIMEOUT", "750ms")
	t.Setenv("WAITLIST_LOCK_TIMEOUT", "not-a-duration")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_DATABASE_URL", "'postgres://db/waitlist'")
	t.Setenv("APP_ENV", "Production")

	cfg := NewWaitlistStorageConfig()

	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, filepath.Join("/var/lib/waitlist", "waitlist.db"), cfg.SQLitePath)
	assert.Equal(t, 750*time.Millisecond, cfg.StorageTimeout)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, "postgres://db/waitlist", cfg.DatabaseURL)
	assert.True(t, cfg.IsProduction())
}

func TestIsProductionEnv_WaitlistConfig(t *testing.T) {
	assert.True(t, IsProductionEnv("production"))
	assert.True(t, IsProductionEnv(" PROD "))
	assert.False(t, IsProductionEnv("staging"))
	assert.False(t, IsProductionEnv(""))
}

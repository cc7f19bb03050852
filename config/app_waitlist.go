package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/akeren/caregiver-waitlist/pkg/utils"
)

const (
	DefaultWaitlistDataDir        = "data"
	DefaultWaitlistFileName       = "waitlist.json"
	DefaultWaitlistSQLiteFileName = "waitlist.db"
	DefaultWaitlistSuccessPath    = "/waitlist/thank-you"
)

// WaitlistStorageConfig carries every environment setting the waitlist storage and
// submission flow need. It is read once at startup.
type WaitlistStorageConfig struct {
	// Store is one of auto, file, sqlite, redis, memory, database.
	Store          string
	AppEnv         string
	DatabaseURL    string
	DataDir        string
	FileName       string
	SQLitePath     string
	StorageTimeout time.Duration
	LockTimeout    time.Duration
	CountCacheTTL  time.Duration
	SuccessPath    string
	AutoMigrate    bool
}

func NewWaitlistStorageConfig() *WaitlistStorageConfig {
	dataDir := utils.GetEnvTrimmedOrDefault("WAITLIST_DATA_DIR", DefaultWaitlistDataDir)

	databaseURL := sanitizeEnv(GetValueFromEnvironmentVariable("DATABASE_URL", ""))
	if databaseURL == "" {
		databaseURL = sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", ""))
	}

	return &WaitlistStorageConfig{
		Store:          strings.ToLower(utils.GetEnvTrimmedOrDefault("WAITLIST_STORE", "auto")),
		AppEnv:         GetAppEnv(),
		DatabaseURL:    databaseURL,
		DataDir:        dataDir,
		FileName:       utils.GetEnvTrimmedOrDefault("WAITLIST_FILE_NAME", DefaultWaitlistFileName),
		SQLitePath:     utils.GetEnvTrimmedOrDefault("WAITLIST_SQLITE_PATH", filepath.Join(dataDir, DefaultWaitlistSQLiteFileName)),
		StorageTimeout: utils.GetEnvDurationOrDefault("WAITLIST_STORAGE_TIMEOUT", 5*time.Second),
		LockTimeout:    utils.GetEnvDurationOrDefault("WAITLIST_LOCK_TIMEOUT", 3*time.Second),
		CountCacheTTL:  utils.GetEnvDurationOrDefault("WAITLIST_COUNT_CACHE_TTL", time.Minute),
		SuccessPath:    utils.GetEnvTrimmedOrDefault("WAITLIST_SUCCESS_PATH", DefaultWaitlistSuccessPath),
	}
}

// IsProduction reports whether APP_ENV names a production deployment.
func (wc *WaitlistStorageConfig) IsProduction() bool {
	return IsProductionEnv(wc.AppEnv)
}

func (wc *WaitlistStorageConfig) FilePath() string {
	return filepath.Join(wc.DataDir, wc.FileName)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/pkg/utils"
	"github.com/joho/godotenv"
)

const (
	AppEnvKey      = "APP_ENV"
	defaultEnvFile = ".env"
)

// autoMigrateEnvs are the APP_ENV values where schema changes may be applied
// at startup.
var autoMigrateEnvs = []string{"", "dev", "development", "local", "test", "testing"}

// InitializeEnvFile loads ENV_FILE (default .env) without overriding
// variables already set in the process environment. SKIP_DOTENV=true turns
// it off.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBoolOrDefault("SKIP_DOTENV", false) {
		logger.Info("Skipping env file load (SKIP_DOTENV=true)")
		return
	}

	path := utils.GetEnvTrimmedOrDefault("ENV_FILE", defaultEnvFile)
	err := godotenv.Load(path)
	switch {
	case err == nil:
		logger.Info("Environment variables loaded", "file", path)
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("No env file found; using process environment", "file", path)
	default:
		logger.Warn("Failed to load env file", "file", path, "error", err)
	}
}

// GetValueFromEnvironmentVariable distinguishes "set to empty" from unset:
// only an unset key gets the default.
func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func normalizeEnv(appEnv string) string {
	return strings.ToLower(strings.TrimSpace(appEnv))
}

func GetAppEnv() string {
	return normalizeEnv(os.Getenv(AppEnvKey))
}

// IsProductionEnv drives the storage selection: only production deployments
// with a database URL use the database backend.
func IsProductionEnv(appEnv string) bool {
	env := normalizeEnv(appEnv)
	return env == "production" || env == "prod"
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := normalizeEnv(appEnv)
	if slices.Contains(autoMigrateEnvs, env) {
		return nil
	}

	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: %s)", AppEnvKey, env, strings.Join(autoMigrateEnvs[1:], ", "))
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akeren/caregiver-waitlist/config"
	"github.com/akeren/caregiver-waitlist/domain/waitlist"
	"github.com/akeren/caregiver-waitlist/internal/log"
	"github.com/akeren/caregiver-waitlist/internal/models"
	"github.com/akeren/caregiver-waitlist/pkg/migrations"
	"github.com/akeren/caregiver-waitlist/pkg/utils"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const commandTimeout = 30 * time.Second

// storageOpener opens the waitlist storage a command reads from. The caller
// closes it.
type storageOpener func(ctx context.Context) (*waitlist.Storage, error)

func newRootCommand(logger *log.Logger, open storageOpener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cli",
		Short:         "Operator tooling for the caregiver waitlist",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(logger),
		newCountCommand(logger, open),
		newListCommand(logger, open),
		newLookupCommand(logger, open),
	)

	return rootCmd
}

func newMigrateCommand(logger *log.Logger) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the SQLite waitlist database",
		RunE: func(cmd *cobra.Command, args []string) error {
			storageCfg := config.NewWaitlistStorageConfig()

			db, err := config.NewSQLiteDatabase(logger, storageCfg.SQLitePath, nil)
			if err != nil {
				logger.Error("Failed to open database for migration", "error", err.Error())
				return err
			}

			sqlDB, err := db.DB()
			if err != nil {
				logger.Error("Failed to get SQL DB instance for migration", "error", err.Error())
				return err
			}
			defer func() {
				if err := sqlDB.Close(); err != nil {
					logger.Warn("Failed to close SQL DB after migration", "error", err.Error())
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			if err := migrations.Up(ctx, sqlDB, migrations.Config{Dir: dir, Logger: logger}); err != nil {
				logger.Error("Database migration failed", "error", err.Error())
				return err
			}

			logger.Info("Database migrations completed", "path", storageCfg.SQLitePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", utils.GetEnvTrimmedOrDefault("MIGRATIONS_DIR", "migrations"), "directory holding the SQL migrations")

	return cmd
}

func newCountCommand(logger *log.Logger, open storageOpener) *cobra.Command {
	var byRole bool

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of waitlist entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, logger, open, func(ctx context.Context, repo waitlist.WaitlistRepository) error {
				if !byRole {
					count, err := repo.CountEntries(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), count)
					return nil
				}

				entries, err := repo.GetAllEntries(ctx)
				if err != nil {
					return err
				}
				printRoleBreakdown(cmd, entries)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&byRole, "by-role", false, "break the count down by role")

	return cmd
}

func printRoleBreakdown(cmd *cobra.Command, entries []*models.WaitlistEntry) {
	perRole := make(map[string]int, len(models.WaitlistRoles))
	for _, entry := range entries {
		perRole[entry.Role]++
	}

	title := cases.Title(language.English)
	out := cmd.OutOrStdout()

	for _, role := range models.WaitlistRoles {
		fmt.Fprintf(out, "%-13s %d\n", title.String(role)+":", perRole[role])
	}
	fmt.Fprintf(out, "%-13s %d\n", "Total:", len(entries))
}

func newListCommand(logger *log.Logger, open storageOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every waitlist entry as JSON lines, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, logger, open, func(ctx context.Context, repo waitlist.WaitlistRepository) error {
				entries, err := repo.GetAllEntries(ctx)
				if err != nil {
					return err
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				for _, entry := range entries {
					if err := encoder.Encode(entry); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newLookupCommand(logger *log.Logger, open storageOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <email>",
		Short: "Print the waitlist entry registered with an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, logger, open, func(ctx context.Context, repo waitlist.WaitlistRepository) error {
				entry, found, err := repo.FindEntryByEmail(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no waitlist entry for %q", args[0])
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(entry)
			})
		},
	}
}

func withStorage(
	cmd *cobra.Command,
	logger *log.Logger,
	open storageOpener,
	fn func(ctx context.Context, repo waitlist.WaitlistRepository) error,
) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	storage, err := open(ctx)
	if err != nil {
		logger.Error("Failed to open waitlist storage", "error", err.Error())
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Warn("Failed to close waitlist storage", "error", err.Error())
		}
	}()

	if err := fn(ctx, storage.Repository); err != nil {
		logger.Error("Command failed", "command", cmd.Name(), "error", err.Error())
		return err
	}

	return nil
}

// openConfiguredStorage opens the same backend the server would. A Redis
// client is only created when the Redis backend is selected.
func openConfiguredStorage(logger *log.Logger) storageOpener {
	return func(ctx context.Context) (*waitlist.Storage, error) {
		storageCfg := config.NewWaitlistStorageConfig()

		backend, err := waitlist.ResolveBackend(storageCfg)
		if err != nil {
			return nil, err
		}

		deps := waitlist.StorageDependencies{Logger: logger}

		var cache config.Cache
		if backend == waitlist.BackendRedis {
			cache = config.NewCacheConfig().NewCacheOrFallback(logger)
			deps.RedisClient = config.GetRedisClient(cache)
		}

		storage, err := waitlist.NewStorage(ctx, storageCfg, deps)
		if err != nil {
			if cache != nil {
				_ = config.CloseCache(cache, logger)
			}
			return nil, err
		}

		if cache != nil {
			closeStorage := storage.Close
			storage.Close = func() error {
				err := closeStorage()
				if cacheErr := config.CloseCache(cache, logger); err == nil {
					err = cacheErr
				}
				return err
			}
		}

		return storage, nil
	}
}

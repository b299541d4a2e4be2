package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillblog/backend/internal/auth"
	"github.com/quillblog/backend/internal/cache"
	"github.com/quillblog/backend/internal/config"
	"github.com/quillblog/backend/internal/database"
	"github.com/quillblog/backend/internal/kernel"
	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/seed"
	"github.com/quillblog/backend/internal/storage"
	"github.com/quillblog/backend/internal/util"
	"github.com/spf13/cobra"
)

// bootstrap loads config, opens the database and wires a kernel. The caller
// must run Cleanup.
func bootstrap(ctx context.Context, withExport bool) (*kernel.Kernel, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, nil, err
	}

	k := kernel.New().SetLogger(logger.Log)

	if err := database.Initialize(cfg.Database, false); err != nil {
		return nil, nil, err
	}
	k.SetDB(database.DB)
	k.OnCleanup(func(context.Context) error { return database.Close() })

	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
		if err != nil {
			_ = k.Cleanup(ctx)
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		k.SetCache(redisClient)
		k.OnCleanup(func(context.Context) error { return redisClient.Close() })
	} else {
		k.SetCache(cache.NewMemoryStore())
	}

	if withExport && cfg.Export.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, cfg.Export.Region, cfg.Export.Bucket, cfg.Export.BaseURL)
		if err != nil {
			_ = k.Cleanup(ctx)
			return nil, nil, err
		}
		k.SetUploader(uploader)
	}

	if err := k.Wire(cfg); err != nil {
		_ = k.Cleanup(ctx)
		return nil, nil, err
	}
	return k, cfg, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		k, _, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer k.Cleanup(ctx)

		if err := database.MigrateDB(k.DB()); err != nil {
			return err
		}
		printSuccess("Migrations complete")
		return nil
	},
}

var promoteAdminCmd = &cobra.Command{
	Use:   "promote-admin <username-or-email>",
	Short: "Grant superuser rights to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		k, _, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer k.Cleanup(ctx)

		user, err := k.Auth().PromoteToSuperuser(ctx, args[0])
		if errors.Is(err, auth.ErrUserNotFound) {
			return fmt.Errorf("no user matches %q", args[0])
		}
		if err != nil {
			return err
		}
		printSuccess("%s (%s) is now a superuser", user.Username, user.Email)
		return nil
	},
}

var (
	seedTestOnly bool
	seedClean    bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo content and location pings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		k, _, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer k.Cleanup(ctx)

		if err := database.MigrateDB(k.DB()); err != nil {
			return err
		}

		s := seed.NewSeeder(k.DB())
		if seedClean {
			printWarning("removing seeded content")
			if err := s.Clean(); err != nil {
				return err
			}
		}

		if seedTestOnly {
			err = s.SeedTest()
		} else {
			err = s.SeedDev()
		}
		if err != nil {
			return err
		}

		// Seeded articles and links change the sidebar
		if err := k.Sidebar().Invalidate(ctx); err != nil {
			printWarning("sidebar cache not cleared: %v", err)
		}
		printSuccess("Seeding complete (password for seeded accounts: %s)", seed.DefaultPassword)
		return nil
	},
}

var clearSidebarCacheCmd = &cobra.Command{
	Use:   "clear-sidebar-cache",
	Short: "Drop every cached sidebar bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		k, cfg, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer k.Cleanup(ctx)

		if !cfg.Redis.Enabled() {
			printInfo("No Redis configured; the server's in-memory cache is not reachable from here")
			return nil
		}
		if err := k.Sidebar().Invalidate(ctx); err != nil {
			return err
		}
		printSuccess("Sidebar cache cleared")
		return nil
	},
}

var exportDate string

var exportLocationsCmd = &cobra.Command{
	Use:   "export-locations",
	Short: "Upload a day's location logs to the export bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		k, _, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer k.Cleanup(ctx)

		if k.Exporter() == nil {
			return errors.New("OWNTRACKS_EXPORT_BUCKET is not set")
		}
		day, err := util.ParseDate(exportDate, time.Now())
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}

		result, err := k.Exporter().ExportDay(ctx, day)
		if err != nil {
			return err
		}
		printSuccess("Exported %d pings for %s to %s", result.Count, result.Date, result.Object.URL)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedTestOnly, "test", false, "Only create the fixed test accounts")
	seedCmd.Flags().BoolVar(&seedClean, "clean", false, "Remove seeded content first")
	exportLocationsCmd.Flags().StringVar(&exportDate, "date", "", "Day to export as YYYY-MM-DD (default today)")
}

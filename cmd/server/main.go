// Package main is the taskflow API server. Run without flags it serves HTTP;
// with -migrate it runs a database migration command and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/phrazzld/taskflow-api/internal/ciutil"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"Run a migration command and exit: "+strings.Join(postgres.MigrationCommands, ", "))
	migrationName := flag.String("name", "", "Name of the migration to create (used with -migrate=create)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrateCmd, *migrationName); err != nil {
		slog.Error("taskflow server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, migrateCmd, migrationName string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"timezone", cfg.Server.Timezone,
		"redis_enabled", cfg.Redis.Enabled())

	if migrateCmd == "create" {
		// create only writes a file; no database needed.
		root, err := ciutil.FindProjectRoot(log)
		if err != nil {
			return fmt.Errorf("failed to locate migrations directory: %w", err)
		}
		return postgres.CreateMigration(filepath.Join(root, postgres.MigrationsDir), migrationName)
	}

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, log, migrateCmd)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, log, "up"); err != nil {
			_ = db.Close()
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

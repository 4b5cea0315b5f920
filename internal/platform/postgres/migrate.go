package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

// MigrationsDir is the on-disk location of the embedded migrations, relative
// to the repository root. New migrations are created here.
const MigrationsDir = "internal/platform/postgres/migrations"

// MigrationCommands lists the commands Migrate accepts.
var MigrationCommands = []string{"up", "down", "reset", "status", "version", "create"}

// ErrUnknownMigrationCommand is returned for commands outside MigrationCommands.
var ErrUnknownMigrationCommand = errors.New("unknown migration command")

// slogGooseLogger adapts slog to goose's logger interface.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Migrate runs a goose command against db using the embedded migrations.
// "create" takes the migration name as its first argument and writes a new
// SQL file into MigrationsDir instead.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger, command string, args ...string) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))

	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if command == "create" {
		if len(args) == 0 {
			return CreateMigration(MigrationsDir, "")
		}
		return CreateMigration(MigrationsDir, args[0])
	}

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "reset":
		err = goose.ResetContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	case "version":
		err = goose.VersionContext(ctx, db, ".")
	default:
		return fmt.Errorf("%w: %s (expected one of %v)", ErrUnknownMigrationCommand, command, MigrationCommands)
	}
	if err != nil {
		log.Error("migration command failed", slog.String("error", err.Error()))
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}

	log.Info("migration command executed successfully")
	return nil
}

// CreateMigration writes a new, empty SQL migration named name into dir.
func CreateMigration(dir, name string) error {
	if name == "" {
		return fmt.Errorf("migration name is required for 'create' command")
	}
	goose.SetBaseFS(nil)
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("migration command 'create' failed: %w", err)
	}
	return nil
}

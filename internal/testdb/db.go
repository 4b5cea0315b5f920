package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskflow-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// EnvDatabaseURL names the variable holding the test database URL.
const EnvDatabaseURL = "TASKFLOW_TEST_DB_URL"

// TestTimeout bounds individual database operations in tests.
const TestTimeout = 5 * time.Second

var (
	migrateOnce sync.Once
	migrateErr  error
)

// DatabaseURL returns the configured test database URL, or "" when unset.
func DatabaseURL() string {
	return os.Getenv(EnvDatabaseURL)
}

// IsAvailable reports whether a test database is configured.
func IsAvailable() bool {
	return DatabaseURL() != ""
}

// Open connects to the test database, applying migrations once per test
// binary. The test is skipped when no database is configured and the
// connection is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	if !IsAvailable() {
		t.Skipf("%s not set; skipping database test", EnvDatabaseURL)
	}

	db, err := sql.Open("pgx", DatabaseURL())
	require.NoError(t, err, "failed to open database connection")
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close database connection: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping database")

	migrateOnce.Do(func() {
		migrateErr = applyMigrations(db)
	})
	require.NoError(t, migrateErr, "failed to apply migrations")

	return db
}

// quietLogger discards goose output.
type quietLogger struct{}

func (quietLogger) Printf(string, ...any) {}
func (quietLogger) Fatalf(format string, v ...any) {
	panic(fmt.Sprintf(format, v...))
}

func applyMigrations(db *sql.DB) error {
	goose.SetLogger(quietLogger{})
	goose.SetTableName("schema_migrations")
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// Context returns a context bounded by TestTimeout.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	t.Cleanup(cancel)
	return ctx
}

package testdb

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAvailable(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	assert.False(t, IsAvailable())

	t.Setenv(EnvDatabaseURL, "postgres://localhost/taskflow_test")
	assert.True(t, IsAvailable())
	assert.Equal(t, "postgres://localhost/taskflow_test", DatabaseURL())
}

func TestWithTxRollsBack(t *testing.T) {
	db := Open(t)

	WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		_, err := tx.Exec("CREATE TABLE testdb_rollback_marker (id INT)")
		require.NoError(t, err)
	})

	var exists bool
	err := db.QueryRow("SELECT to_regclass('public.testdb_rollback_marker') IS NOT NULL").Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMigrationsCreateTables(t *testing.T) {
	db := Open(t)

	for _, table := range []string{"users", "tasks", "task_search_index", "search_sync_jobs"} {
		var exists bool
		err := db.QueryRow("SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s", table)
	}
}

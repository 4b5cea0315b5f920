// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests using it are skipped unless TASKFLOW_TEST_DB_URL is set.
//
// Each test runs inside a transaction that is rolled back afterwards, so tests
// can share one migrated database without cleaning up:
//
//	func TestSomething(t *testing.T) {
//		db := testdb.Open(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			tasks := postgres.NewPostgresTaskStore(tx, nil)
//			// ...
//		})
//	}
package testdb

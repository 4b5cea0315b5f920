// Package postgres implements the store, search index and job store
// interfaces on PostgreSQL through database/sql and the pgx driver, and owns
// the schema migrations.
package postgres

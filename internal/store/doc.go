// Package store defines the persistence interfaces for tasks and users and
// the errors every implementation reports. Implementations live in
// internal/platform/postgres.
package store

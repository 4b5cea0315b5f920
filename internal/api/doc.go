// Package api holds the HTTP handlers for tasks and accounts. Handlers
// decode and check requests, call the services, and render results through
// the presenter package; errors are mapped to status codes in one place by
// HandleAPIError.
package api

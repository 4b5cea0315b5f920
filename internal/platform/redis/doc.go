// Package redis holds the Redis-backed helpers: the per-owner task list cache,
// the sliding-window rate limiter and the access token revocation list.
//
// Every helper is optional. Callers treat errors from this package as a cache
// miss or an allowed request, never as a reason to fail the request.
package redis

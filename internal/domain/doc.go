// Package domain contains the task and user entities, their validation rules,
// and the value types that describe list and search queries.
package domain

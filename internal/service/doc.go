// Package service implements the application operations on tasks and users.
//
// TaskService is the only component that writes tasks. Each single-task
// operation loads the task, asks the authz package whether the principal may
// act on it and only then reads or changes it. After a successful write the
// service bumps the owner's list cache generation and emits a change event;
// failures in either step are logged and never reach the caller.
//
// Errors are returned as sentinels (ErrNotOwned, store.ErrTaskNotFound,
// domain validation errors) when the caller is expected to act on them, and
// wrapped in TaskServiceError otherwise.
package service

package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTitleLength is the maximum number of characters in a task title.
const MaxTitleLength = 255

// Validation messages shared by the domain and the HTTP request layer.
const (
	MsgTitleRequired   = "A task title is required"
	MsgTitleTooLong    = "The task title may not be greater than 255 characters"
	MsgPriorityInvalid = "The priority must be one of: low, medium, high, urgent"
	MsgDueDateFuture   = "The due date must be a future date and time"
)

// Task is a personal to-do item owned by exactly one user.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description *string
	IsCompleted bool
	Priority    Priority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Author is attached on request and is never persisted with the task.
	Author *UserSummary
}

// TaskInput carries the caller-supplied fields for a new task. The owner is
// passed separately so it can only come from the authenticated principal.
type TaskInput struct {
	Title       string
	Description *string
	IsCompleted bool
	Priority    Priority
	DueDate     *time.Time
}

// NewTask builds a task owned by userID. An empty priority defaults to low.
// A supplied due date must be strictly after now.
func NewTask(userID uuid.UUID, in TaskInput, now time.Time) (*Task, error) {
	if in.Priority == "" {
		in.Priority = PriorityLow
	}

	errs := ValidationErrors{}
	if userID == uuid.Nil {
		errs.Add("user_id", "user ID cannot be empty")
	}
	validateTitle(errs, in.Title)
	if !in.Priority.Valid() {
		errs.Add("priority", MsgPriorityInvalid)
	}
	validateDueDate(errs, in.DueDate, now)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now = now.UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
		Priority:    in.Priority,
		DueDate:     utcPtr(in.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return task, nil
}

// Validate checks the persisted invariants of a task. It does not re-check
// that the due date lies in the future, since stored tasks may become overdue.
func (t *Task) Validate() error {
	errs := ValidationErrors{}
	if t.ID == uuid.Nil {
		errs.Add("id", "task ID cannot be empty")
	}
	if t.UserID == uuid.Nil {
		errs.Add("user_id", "user ID cannot be empty")
	}
	validateTitle(errs, t.Title)
	if !t.Priority.Valid() {
		errs.Add("priority", MsgPriorityInvalid)
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		errs.Add("updated_at", "updated_at cannot precede created_at")
	}
	return errs.Err()
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && t.UserID == userID
}

// IsOverdue reports whether an incomplete task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now)
}

// Field is an optional value in a partial update. Set distinguishes a field
// that was supplied from one that was left out.
type Field[T any] struct {
	Set   bool
	Value T
}

// Some returns a supplied Field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// TaskPatch is a partial update. Description and DueDate may be set to nil to
// clear them.
type TaskPatch struct {
	Title       Field[string]
	Description Field[*string]
	IsCompleted Field[bool]
	Priority    Field[Priority]
	DueDate     Field[*time.Time]
}

// Empty reports whether the patch supplies no fields.
func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.IsCompleted.Set && !p.Priority.Set && !p.DueDate.Set
}

// Validate checks the supplied fields.
func (p TaskPatch) Validate(now time.Time) error {
	errs := ValidationErrors{}
	if p.Title.Set {
		validateTitle(errs, p.Title.Value)
	}
	if p.Priority.Set && !p.Priority.Value.Valid() {
		errs.Add("priority", MsgPriorityInvalid)
	}
	if p.DueDate.Set {
		validateDueDate(errs, p.DueDate.Value, now)
	}
	return errs.Err()
}

// Apply validates the patch and copies supplied fields onto t. It reports
// whether any field actually changed; updated_at only moves when one did, so
// repeating the same patch leaves the task untouched.
func (p TaskPatch) Apply(t *Task, now time.Time) (bool, error) {
	if err := p.Validate(now); err != nil {
		return false, err
	}

	changed := false
	if p.Title.Set && p.Title.Value != t.Title {
		t.Title = p.Title.Value
		changed = true
	}
	if p.Description.Set && !equalStringPtr(p.Description.Value, t.Description) {
		t.Description = p.Description.Value
		changed = true
	}
	if p.IsCompleted.Set && p.IsCompleted.Value != t.IsCompleted {
		t.IsCompleted = p.IsCompleted.Value
		changed = true
	}
	if p.Priority.Set && p.Priority.Value != t.Priority {
		t.Priority = p.Priority.Value
		changed = true
	}
	if p.DueDate.Set && !equalTimePtr(p.DueDate.Value, t.DueDate) {
		t.DueDate = utcPtr(p.DueDate.Value)
		changed = true
	}

	if changed {
		now = now.UTC()
		if now.Before(t.CreatedAt) {
			now = t.CreatedAt
		}
		t.UpdatedAt = now
	}
	return changed, nil
}

func validateTitle(errs ValidationErrors, title string) {
	switch {
	case title == "":
		errs.Add("title", MsgTitleRequired)
	case utf8.RuneCountInString(title) > MaxTitleLength:
		errs.Add("title", MsgTitleTooLong)
	}
}

func validateDueDate(errs ValidationErrors, due *time.Time, now time.Time) {
	if due != nil && !due.After(now) {
		errs.Add("due_date", MsgDueDateFuture)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

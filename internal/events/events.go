package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types emitted after a task write has been committed.
const (
	TypeTaskSaved   = "task.saved"
	TypeTaskDeleted = "task.deleted"
)

// Event is a notification that something happened.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// TaskChanged is the payload of task.saved and task.deleted events. It holds
// identifiers only; consumers reload current state from the task store.
type TaskChanged struct {
	TaskID uuid.UUID `json:"task_id"`
	UserID uuid.UUID `json:"user_id"`
}

// NewEvent creates an Event with the JSON encoding of payload.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewTaskChangedEvent creates a task.saved or task.deleted event.
func NewTaskChangedEvent(eventType string, taskID, userID uuid.UUID) (*Event, error) {
	return NewEvent(eventType, TaskChanged{TaskID: taskID, UserID: userID})
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

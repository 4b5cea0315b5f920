package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Document is the denormalized, searchable copy of a task. Timestamps are
// epoch seconds.
type Document struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description *string
	IsCompleted bool
	Priority    domain.Priority
	DueDate     *int64
	CreatedAt   int64
	UpdatedAt   int64
}

// DocumentFromTask projects t into a Document.
func DocumentFromTask(t *domain.Task) Document {
	doc := Document{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt.Unix(),
		UpdatedAt:   t.UpdatedAt.Unix(),
	}
	if t.DueDate != nil {
		due := t.DueDate.Unix()
		doc.DueDate = &due
	}
	return doc
}

// Task rebuilds a task from the document, at second precision.
func (d Document) Task() *domain.Task {
	t := &domain.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		IsCompleted: d.IsCompleted,
		Priority:    d.Priority,
		CreatedAt:   time.Unix(d.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(d.UpdatedAt, 0).UTC(),
	}
	if d.DueDate != nil {
		due := time.Unix(*d.DueDate, 0).UTC()
		t.DueDate = &due
	}
	return t
}

// Index stores and queries documents.
type Index interface {
	// Upsert inserts doc or replaces the row with the same ID.
	Upsert(ctx context.Context, doc Document) error

	// Delete removes the document with id. Deleting a missing document is
	// not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Search returns one page of userID's documents matching q, best match
	// first, and the total number of matches.
	Search(ctx context.Context, userID uuid.UUID, q domain.SearchQuery) ([]Document, int64, error)
}

package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/search"
)

// MockSearchIndex implements search.Index for testing.
type MockSearchIndex struct {
	UpsertFn func(ctx context.Context, doc search.Document) error
	DeleteFn func(ctx context.Context, id uuid.UUID) error
	SearchFn func(ctx context.Context, userID uuid.UUID, q domain.SearchQuery) ([]search.Document, int64, error)

	SearchCalls []domain.SearchQuery
}

var _ search.Index = (*MockSearchIndex)(nil)

// Upsert implements search.Index.
func (m *MockSearchIndex) Upsert(ctx context.Context, doc search.Document) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, doc)
	}
	return nil
}

// Delete implements search.Index.
func (m *MockSearchIndex) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// Search implements search.Index. It records every query.
func (m *MockSearchIndex) Search(
	ctx context.Context,
	userID uuid.UUID,
	q domain.SearchQuery,
) ([]search.Document, int64, error) {
	m.SearchCalls = append(m.SearchCalls, q)
	if m.SearchFn != nil {
		return m.SearchFn(ctx, userID, q)
	}
	return nil, 0, nil
}

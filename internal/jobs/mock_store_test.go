package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockStore is an in-memory Store. Fn fields override the default behavior.
type mockStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record

	SaveFn           func(ctx context.Context, job Job) error
	MarkProcessingFn func(ctx context.Context, id uuid.UUID) (int, error)
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[uuid.UUID]*Record)}
}

func (s *mockStore) SaveJob(ctx context.Context, job Job) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, job)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.records[job.ID()] = &Record{
		ID:        job.ID(),
		Type:      job.Type(),
		Payload:   job.Payload(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *mockStore) MarkProcessing(ctx context.Context, id uuid.UUID) (int, error) {
	if s.MarkProcessingFn != nil {
		return s.MarkProcessingFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return 0, nil
	}
	rec.Status = StatusProcessing
	rec.Attempts++
	rec.UpdatedAt = time.Now()
	return rec.Attempts, nil
}

func (s *mockStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Status = status
		rec.ErrorMessage = errorMsg
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (s *mockStore) GetPendingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(StatusPending, olderThan), nil
}

func (s *mockStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(StatusProcessing, olderThan), nil
}

func (s *mockStore) byStatus(status Status, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []Record
	for _, rec := range s.records {
		if rec.Status == status && (olderThan == 0 || rec.UpdatedAt.Before(cutoff)) {
			out = append(out, *rec)
		}
	}
	return out
}

// put stores rec directly, bypassing SaveJob.
func (s *mockStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func (s *mockStore) get(id uuid.UUID) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return *rec
	}
	return Record{}
}

// fakeJob runs ExecuteFn, or succeeds when it is nil.
type fakeJob struct {
	id        uuid.UUID
	payload   []byte
	ExecuteFn func(ctx context.Context) error
}

func newFakeJob(fn func(ctx context.Context) error) *fakeJob {
	return &fakeJob{id: uuid.New(), payload: []byte(`{}`), ExecuteFn: fn}
}

func (j *fakeJob) ID() uuid.UUID   { return j.id }
func (j *fakeJob) Type() string    { return "fake" }
func (j *fakeJob) Payload() []byte { return j.payload }
func (j *fakeJob) Execute(ctx context.Context) error {
	if j.ExecuteFn == nil {
		return nil
	}
	return j.ExecuteFn(ctx)
}

type countingObserver struct {
	mu      sync.Mutex
	results map[string]int
}

func (o *countingObserver) JobFinished(_ string, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string]int)
	}
	o.results[result]++
}

func (o *countingObserver) QueueDepth(int) {}

func (o *countingObserver) count(result string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results[result]
}

package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
	err   error

	// afterRead runs once a task has been found, outside the lock.
	afterRead func(id uuid.UUID)
}

func (f *fakeTasks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	task, ok := f.tasks[id]
	if !ok {
		f.mu.Unlock()
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	f.mu.Unlock()

	if f.afterRead != nil {
		f.afterRead(id)
	}
	return &copied, nil
}

func (f *fakeTasks) remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
}

type fakeIndex struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]Document
	UpsertFn func(doc Document) error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[uuid.UUID]Document)}
}

func (f *fakeIndex) Upsert(ctx context.Context, doc Document) error {
	if f.UpsertFn != nil {
		if err := f.UpsertFn(doc); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, userID uuid.UUID, q domain.SearchQuery) ([]Document, int64, error) {
	return nil, 0, nil
}

// serialLocker serializes every task behind one mutex.
type serialLocker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *serialLocker) WithTaskLock(ctx context.Context, taskID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []jobs.Job
	err       error
}

func (f *fakeSubmitter) Submit(ctx context.Context, job jobs.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, job)
	return f.err
}

func (f *fakeSubmitter) taskIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, len(f.submitted))
	for i, job := range f.submitted {
		ids[i] = job.(*ReindexJob).TaskID()
	}
	return ids
}

func sampleTask() *domain.Task {
	desc := "semi-skimmed"
	due := time.Date(2030, 1, 2, 15, 4, 5, 0, time.UTC)
	return &domain.Task{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Title:       "Buy milk",
		Description: &desc,
		Priority:    domain.PriorityHigh,
		DueDate:     &due,
		CreatedAt:   time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	task := sampleTask()

	doc := DocumentFromTask(task)

	require.NotNil(t, doc.DueDate)
	assert.Equal(t, task.DueDate.Unix(), *doc.DueDate)
	assert.Equal(t, task.CreatedAt.Unix(), doc.CreatedAt)
	assert.Equal(t, task, doc.Task())

	task.DueDate = nil
	assert.Nil(t, DocumentFromTask(task).DueDate)
	assert.Nil(t, DocumentFromTask(task).Task().DueDate)
}

func TestReindexJobExecute(t *testing.T) {
	task := sampleTask()
	tasks := &fakeTasks{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}

	t.Run("upserts existing task", func(t *testing.T) {
		index := newFakeIndex()
		job, err := NewReindexJob(task.ID, task.UserID, tasks, index, &serialLocker{}, nil)
		require.NoError(t, err)

		require.NoError(t, job.Execute(context.Background()))

		assert.Equal(t, DocumentFromTask(task), index.docs[task.ID])
	})

	t.Run("removes missing task", func(t *testing.T) {
		index := newFakeIndex()
		gone := uuid.New()
		index.docs[gone] = Document{ID: gone}
		job, err := NewReindexJob(gone, uuid.New(), tasks, index, &serialLocker{}, nil)
		require.NoError(t, err)

		require.NoError(t, job.Execute(context.Background()))

		assert.NotContains(t, index.docs, gone)
	})

	t.Run("store errors are returned for retry", func(t *testing.T) {
		failing := &fakeTasks{err: errors.New("connection refused")}
		job, err := NewReindexJob(task.ID, task.UserID, failing, newFakeIndex(), &serialLocker{}, nil)
		require.NoError(t, err)

		err = job.Execute(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("index errors are returned for retry", func(t *testing.T) {
		index := newFakeIndex()
		index.UpsertFn = func(Document) error { return errors.New("index down") }
		job, err := NewReindexJob(task.ID, task.UserID, tasks, index, &serialLocker{}, nil)
		require.NoError(t, err)

		assert.Error(t, job.Execute(context.Background()))
	})

	t.Run("rejects empty task id", func(t *testing.T) {
		_, err := NewReindexJob(uuid.Nil, uuid.New(), tasks, newFakeIndex(), &serialLocker{}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects missing locker", func(t *testing.T) {
		_, err := NewReindexJob(task.ID, task.UserID, tasks, newFakeIndex(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("lock failures are returned for retry", func(t *testing.T) {
		index := newFakeIndex()
		locks := &serialLocker{err: errors.New("lock timeout")}
		job, err := NewReindexJob(task.ID, task.UserID, tasks, index, locks, nil)
		require.NoError(t, err)

		assert.Error(t, job.Execute(context.Background()))
		assert.Empty(t, index.docs)
	})
}

func TestReindexJobsForOneTaskDoNotInterleave(t *testing.T) {
	task := sampleTask()
	tasks := &fakeTasks{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}
	index := newFakeIndex()
	locks := &serialLocker{}

	// The first job pauses right after loading the task, holding a copy
	// that is about to go out of date.
	loaded := make(chan struct{})
	resume := make(chan struct{})
	var once sync.Once
	tasks.afterRead = func(uuid.UUID) {
		once.Do(func() {
			close(loaded)
			<-resume
		})
	}

	saved, err := NewReindexJob(task.ID, task.UserID, tasks, index, locks, nil)
	require.NoError(t, err)
	deleted, err := NewReindexJob(task.ID, task.UserID, tasks, index, locks, nil)
	require.NoError(t, err)

	savedDone := make(chan error, 1)
	go func() { savedDone <- saved.Execute(context.Background()) }()
	<-loaded

	tasks.remove(task.ID)
	deletedDone := make(chan error, 1)
	go func() { deletedDone <- deleted.Execute(context.Background()) }()

	close(resume)
	require.NoError(t, <-savedDone)
	require.NoError(t, <-deletedDone)

	assert.NotContains(t, index.docs, task.ID, "a deleted task must not stay searchable")
	assert.Equal(t, 2, locks.calls)
}

func TestReindexJobsConvergeInAnyOrder(t *testing.T) {
	task := sampleTask()
	tasks := &fakeTasks{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}
	index := newFakeIndex()

	saved, err := NewReindexJob(task.ID, task.UserID, tasks, index, &serialLocker{}, nil)
	require.NoError(t, err)
	deleted, err := NewReindexJob(task.ID, task.UserID, tasks, index, &serialLocker{}, nil)
	require.NoError(t, err)

	// The task was deleted before either job ran; the delete job runs first.
	delete(tasks.tasks, task.ID)
	require.NoError(t, deleted.Execute(context.Background()))
	require.NoError(t, saved.Execute(context.Background()))

	assert.Empty(t, index.docs)
}

func TestReindexFactory(t *testing.T) {
	task := sampleTask()
	tasks := &fakeTasks{tasks: map[uuid.UUID]*domain.Task{task.ID: task}}
	index := newFakeIndex()
	original, err := NewReindexJob(task.ID, task.UserID, tasks, index, &serialLocker{}, nil)
	require.NoError(t, err)

	factory := ReindexFactory(tasks, index, &serialLocker{}, nil)
	rebuilt, err := factory(jobs.Record{ID: original.ID(), Type: JobTypeReindex, Payload: original.Payload()})
	require.NoError(t, err)

	assert.Equal(t, original.ID(), rebuilt.ID())
	assert.Equal(t, task.ID, rebuilt.(*ReindexJob).TaskID())

	_, err = factory(jobs.Record{ID: uuid.New(), Type: JobTypeReindex, Payload: []byte("not json")})
	assert.Error(t, err)
}

func TestSyncerHandleEvent(t *testing.T) {
	tasks := &fakeTasks{tasks: map[uuid.UUID]*domain.Task{}}
	index := newFakeIndex()
	taskID, userID := uuid.New(), uuid.New()

	t.Run("submits reindex job for task events", func(t *testing.T) {
		for _, eventType := range []string{events.TypeTaskSaved, events.TypeTaskDeleted} {
			submitter := &fakeSubmitter{}
			syncer := NewSyncer(submitter, tasks, index, &serialLocker{}, nil)
			event, err := events.NewTaskChangedEvent(eventType, taskID, userID)
			require.NoError(t, err)

			require.NoError(t, syncer.HandleEvent(context.Background(), event))

			require.Len(t, submitter.submitted, 1)
			assert.Equal(t, JobTypeReindex, submitter.submitted[0].Type())
			assert.Equal(t, taskID, submitter.submitted[0].(*ReindexJob).TaskID())
		}
	})

	t.Run("ignores other events", func(t *testing.T) {
		submitter := &fakeSubmitter{}
		syncer := NewSyncer(submitter, tasks, index, &serialLocker{}, nil)
		event, err := events.NewEvent("user.registered", map[string]string{})
		require.NoError(t, err)

		require.NoError(t, syncer.HandleEvent(context.Background(), event))
		assert.Empty(t, submitter.submitted)
	})

	t.Run("full queue is deferred not failed", func(t *testing.T) {
		submitter := &fakeSubmitter{err: jobs.ErrQueueFull}
		syncer := NewSyncer(submitter, tasks, index, &serialLocker{}, nil)
		event, err := events.NewTaskChangedEvent(events.TypeTaskSaved, taskID, userID)
		require.NoError(t, err)

		assert.NoError(t, syncer.HandleEvent(context.Background(), event))
	})

	t.Run("persist failure is reported", func(t *testing.T) {
		submitter := &fakeSubmitter{err: errors.New("db down")}
		syncer := NewSyncer(submitter, tasks, index, &serialLocker{}, nil)
		event, err := events.NewTaskChangedEvent(events.TypeTaskSaved, taskID, userID)
		require.NoError(t, err)

		assert.Error(t, syncer.HandleEvent(context.Background(), event))
	})
}

func TestSyncerSubmit(t *testing.T) {
	submitter := &fakeSubmitter{}
	syncer := NewSyncer(submitter, &fakeTasks{}, newFakeIndex(), &serialLocker{}, nil)
	taskID := uuid.New()

	require.NoError(t, syncer.Submit(context.Background(), taskID, uuid.New(), "reconcile"))
	assert.Equal(t, []uuid.UUID{taskID}, submitter.taskIDs())

	assert.Panics(t, func() { NewSyncer(submitter, &fakeTasks{}, newFakeIndex(), nil, nil) })
}

type fakeDrift struct {
	mu      sync.Mutex
	refs    []TaskRef
	err     error
	calls   int
	settled []time.Time
	limits  []int
	called  chan struct{}
}

func (f *fakeDrift) FindDrift(ctx context.Context, settledBefore time.Time, limit int) ([]TaskRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.settled = append(f.settled, settledBefore)
	f.limits = append(f.limits, limit)
	if f.called != nil && f.calls == 1 {
		close(f.called)
	}
	return f.refs, f.err
}

func TestReconcilerReconcile(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	refs := []TaskRef{
		{TaskID: uuid.New(), UserID: uuid.New()},
		{TaskID: uuid.New(), UserID: uuid.New()},
	}
	config := ReconcilerConfig{Interval: time.Minute, Grace: 30 * time.Second, BatchSize: 50}

	newReconciler := func(drift DriftSource, submitter *fakeSubmitter) *Reconciler {
		syncer := NewSyncer(submitter, &fakeTasks{}, newFakeIndex(), &serialLocker{}, nil)
		r := NewReconciler(syncer, drift, config, nil)
		r.clock = func() time.Time { return now }
		return r
	}

	t.Run("submits a job per drifted task", func(t *testing.T) {
		drift := &fakeDrift{refs: refs}
		submitter := &fakeSubmitter{}

		n, err := newReconciler(drift, submitter).Reconcile(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []uuid.UUID{refs[0].TaskID, refs[1].TaskID}, submitter.taskIDs())
		assert.Equal(t, []time.Time{now.Add(-30 * time.Second)}, drift.settled)
		assert.Equal(t, []int{50}, drift.limits)
	})

	t.Run("no drift submits nothing", func(t *testing.T) {
		submitter := &fakeSubmitter{}

		n, err := newReconciler(&fakeDrift{}, submitter).Reconcile(context.Background())

		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, submitter.submitted)
	})

	t.Run("drift lookup failure", func(t *testing.T) {
		_, err := newReconciler(&fakeDrift{err: errors.New("db down")}, &fakeSubmitter{}).
			Reconcile(context.Background())

		assert.ErrorContains(t, err, "db down")
	})

	t.Run("submit failure stops the pass", func(t *testing.T) {
		submitter := &fakeSubmitter{err: errors.New("db down")}

		n, err := newReconciler(&fakeDrift{refs: refs}, submitter).Reconcile(context.Background())

		require.Error(t, err)
		assert.Zero(t, n)
		assert.Len(t, submitter.submitted, 1)
	})

	t.Run("full queue still counts as submitted", func(t *testing.T) {
		submitter := &fakeSubmitter{err: jobs.ErrQueueFull}

		n, err := newReconciler(&fakeDrift{refs: refs}, submitter).Reconcile(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	drift := &fakeDrift{refs: []TaskRef{{TaskID: uuid.New(), UserID: uuid.New()}}, called: make(chan struct{})}
	submitter := &fakeSubmitter{}
	syncer := NewSyncer(submitter, &fakeTasks{}, newFakeIndex(), &serialLocker{}, nil)
	r := NewReconciler(syncer, drift, ReconcilerConfig{Interval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	select {
	case <-drift.called:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
	assert.NotEmpty(t, submitter.taskIDs())
}

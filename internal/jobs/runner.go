package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds configuration for the job runner.
type Config struct {
	// WorkerCount determines how many jobs execute concurrently.
	WorkerCount int

	// QueueSize is the buffer size of the in-memory queue.
	QueueSize int

	// MaxAttempts bounds how often a failing job is executed before it is
	// marked failed.
	MaxAttempts int

	// RetryBackoff is multiplied by the attempt number to get the delay
	// before a failed job is queued again.
	RetryBackoff time.Duration

	// StuckJobAge is how long a job may sit in processing, or pending
	// without being picked up, before the monitor queues it again.
	StuckJobAge time.Duration

	// CheckInterval is how often the monitor looks for such jobs.
	CheckInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:   2,
		QueueSize:     256,
		MaxAttempts:   5,
		RetryBackoff:  2 * time.Second,
		StuckJobAge:   5 * time.Minute,
		CheckInterval: time.Minute,
	}
}

// Runner executes jobs on a pool of workers fed by a buffered queue.
type Runner struct {
	store      Store
	registry   *Registry
	queue      chan Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    atomic.Bool
	config     Config
	logger     *slog.Logger
	observer   Observer
	errHandler func(job Job, err error)
}

// NewRunner creates a Runner. Non-positive config values fall back to
// DefaultConfig.
func NewRunner(store Store, registry *Registry, config Config, logger *slog.Logger) *Runner {
	if store == nil {
		panic("store cannot be nil")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryBackoff < 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}
	if config.StuckJobAge <= 0 {
		config.StuckJobAge = defaults.StuckJobAge
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With(slog.String("component", "job_runner"))

	return &Runner{
		store:      store,
		registry:   registry,
		queue:      make(chan Job, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		observer:   noopObserver{},
		errHandler: func(job Job, err error) {
			logger.Error("job failed permanently",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", err)
		},
	}
}

// SetObserver installs o. A nil observer disables notifications.
func (r *Runner) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	r.observer = o
}

// SetErrorHandler sets the function called when a job exhausts its attempts.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Registry returns the registry used to rebuild recovered jobs.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Submit persists job and queues it. When the queue is full the job stays
// pending in the store and ErrQueueFull is returned; the monitor will pick
// it up once it is older than StuckJobAge.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if r.stopped.Load() {
		return ErrRunnerStopped
	}

	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	return r.enqueue(job)
}

func (r *Runner) enqueue(job Job) error {
	select {
	case r.queue <- job:
		r.observer.QueueDepth(len(r.queue))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(r.queue))
	}
}

// Start recovers unfinished jobs, then starts the workers and the monitor.
func (r *Runner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.monitor()

	r.logger.Info("job runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)
	return nil
}

// Stop cancels running jobs and waits for workers to exit. Jobs still queued
// remain pending in the store and are recovered on the next Start.
func (r *Runner) Stop() {
	if r.stopped.Swap(true) {
		return
	}
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("job runner stopped", "abandoned_in_queue", len(r.queue))
}

// Recover queues every pending job and resets every processing job, which
// can only have been interrupted by a previous shutdown or crash.
func (r *Runner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	r.requeue(ctx, pending, "")
	r.requeue(ctx, processing, "reset after recovery")
	return nil
}

// Sweep re-queues jobs stuck in processing and jobs left pending for longer
// than StuckJobAge. The monitor calls it every CheckInterval.
func (r *Runner) Sweep(ctx context.Context) {
	stuck, err := r.store.GetProcessingJobs(ctx, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
	} else if len(stuck) > 0 {
		r.logger.Info("found stuck jobs", "count", len(stuck))
		r.requeue(ctx, stuck, "reset after being stuck in processing state")
	}

	stale, err := r.store.GetPendingJobs(ctx, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stale pending jobs", "error", err)
	} else if len(stale) > 0 {
		r.logger.Info("found stale pending jobs", "count", len(stale))
		r.requeue(ctx, stale, "")
	}
}

// requeue rebuilds records and queues them. A non-empty resetReason first
// moves the record back to pending.
func (r *Runner) requeue(ctx context.Context, records []Record, resetReason string) {
	for _, rec := range records {
		log := r.logger.With("job_id", rec.ID, "job_type", rec.Type)

		job, err := r.registry.Build(rec)
		if err != nil {
			log.Error("failed to rebuild job", "error", err)
			if updateErr := r.store.UpdateJobStatus(ctx, rec.ID, StatusFailed, err.Error()); updateErr != nil {
				log.Error("failed to mark unbuildable job as failed", "error", updateErr)
			}
			r.observer.JobFinished(rec.Type, ResultDropped)
			continue
		}

		if resetReason != "" {
			if err := r.store.UpdateJobStatus(ctx, rec.ID, StatusPending, resetReason); err != nil {
				log.Error("failed to reset job status", "error", err)
				continue
			}
		}

		if err := r.enqueue(job); err != nil {
			log.Warn("failed to requeue job", "error", err)
		}
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job := <-r.queue:
			r.observer.QueueDepth(len(r.queue))
			r.processJob(job, id)
		}
	}
}

func (r *Runner) processJob(job Job, workerID int) {
	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	attempts, err := r.store.MarkProcessing(r.ctx, job.ID())
	if err != nil {
		log.Error("failed to mark job as processing", "error", err)
		return
	}

	log.Debug("processing job", "attempt", attempts)

	execErr := job.Execute(r.ctx)
	if execErr == nil {
		if err := r.store.UpdateJobStatus(r.ctx, job.ID(), StatusCompleted, ""); err != nil {
			log.Error("failed to mark job as completed", "error", err)
		}
		r.observer.JobFinished(job.Type(), ResultCompleted)
		return
	}

	if r.ctx.Err() != nil {
		// Shutting down: leave the job in processing so Recover resets it.
		log.Info("job interrupted by shutdown", "error", execErr)
		return
	}

	if attempts < r.config.MaxAttempts {
		log.Warn("job failed, will retry",
			"attempt", attempts,
			"max_attempts", r.config.MaxAttempts,
			"error", execErr)
		if err := r.store.UpdateJobStatus(r.ctx, job.ID(), StatusPending, execErr.Error()); err != nil {
			log.Error("failed to mark job for retry", "error", err)
			return
		}
		r.observer.JobFinished(job.Type(), ResultRetried)
		r.scheduleRetry(job, attempts)
		return
	}

	if err := r.store.UpdateJobStatus(r.ctx, job.ID(), StatusFailed, execErr.Error()); err != nil {
		log.Error("failed to mark job as failed", "error", err)
	}
	r.observer.JobFinished(job.Type(), ResultFailed)
	r.errHandler(job, execErr)
}

// scheduleRetry queues job again after a delay that grows with each attempt.
// Called from a worker, so the wait group is never at zero here.
func (r *Runner) scheduleRetry(job Job, attempts int) {
	delay := r.config.RetryBackoff * time.Duration(attempts)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-r.ctx.Done():
		case <-timer.C:
			if err := r.enqueue(job); err != nil {
				r.logger.Warn("failed to queue job retry",
					"job_id", job.ID(),
					"job_type", job.Type(),
					"error", err)
			}
		}
	}()
}

func (r *Runner) monitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.ctx)
		}
	}
}

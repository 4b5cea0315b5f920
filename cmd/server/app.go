package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskflow-api/internal/api"
	apimw "github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/metrics"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/platform/redis"
	"github.com/phrazzld/taskflow-api/internal/search"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// application holds the long-lived dependencies so they can be shut down
// in order.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	db      *sql.DB
	redis   *goredis.Client
	metrics *metrics.Metrics
	runner  *jobs.Runner
	routes  routes

	reconciler     *search.Reconciler
	stopReconciler func()
}

// newApplication builds every component on top of an open database. Redis
// backed features are enabled only when a Redis URL is configured.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(nil),
	}

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Server.Timezone, err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db, logger)
	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	searchIndex := postgres.NewPostgresSearchIndex(db, logger)
	taskLocks := postgres.NewAdvisoryTaskLocker(db)

	// Search projection sync: events -> syncer -> persisted jobs -> runner,
	// with the reconciler catching events that never became jobs.
	registry := jobs.NewRegistry()
	registry.Register(search.JobTypeReindex, search.ReindexFactory(taskStore, searchIndex, taskLocks, logger))
	app.runner = jobs.NewRunner(postgres.NewPostgresJobStore(db, logger), registry, jobs.Config{
		WorkerCount:   cfg.Sync.WorkerCount,
		QueueSize:     cfg.Sync.QueueSize,
		MaxAttempts:   cfg.Sync.MaxAttempts,
		RetryBackoff:  time.Duration(cfg.Sync.RetryBackoffSeconds) * time.Second,
		StuckJobAge:   time.Duration(cfg.Sync.StuckJobAgeMinutes) * time.Minute,
		CheckInterval: time.Duration(cfg.Sync.CheckIntervalSeconds) * time.Second,
	}, logger)
	app.runner.SetObserver(app.metrics)

	syncer := search.NewSyncer(app.runner, taskStore, searchIndex, taskLocks, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(syncer)
	app.reconciler = search.NewReconciler(syncer, searchIndex, search.ReconcilerConfig{
		Interval:  time.Duration(cfg.Sync.ReconcileIntervalSeconds) * time.Second,
		Grace:     time.Duration(cfg.Sync.ReconcileGraceSeconds) * time.Second,
		BatchSize: cfg.Sync.ReconcileBatchSize,
	}, logger)

	taskOpts := []service.TaskServiceOption{
		service.WithOperationRecorder(app.metrics),
		service.WithMaxQueryLength(cfg.Search.MaxQueryLength),
	}
	var revocation *redis.TokenRevocationList
	if cfg.Redis.Enabled() {
		app.redis, err = redis.Open(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		ttl := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
		taskOpts = append(taskOpts, service.WithListCache(redis.NewTaskListCache(app.redis, ttl, logger)))
		revocation = redis.NewTokenRevocationList(app.redis)
		logger.Info("redis enabled", "cache_ttl_seconds", cfg.Redis.CacheTTLSeconds)
	}

	taskService, err := service.NewTaskService(taskStore, userStore, searchIndex, emitter, db, logger, taskOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	userService, err := service.NewUserService(userStore, auth.NewBcryptVerifier(), db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	tokenLifetime := time.Duration(cfg.Auth.TokenLifetimeMinutes) * time.Minute
	var authOpts []api.AuthHandlerOption
	app.routes = routes{
		tasks:   api.NewTaskHandler(taskService, loc, logger),
		metrics: app.metrics,
		logger:  logger,
	}
	if revocation != nil {
		authOpts = append(authOpts, api.WithTokenRevoker(revocation))
		app.routes.authenticator = apimw.NewAuthMiddleware(jwtService, revocation, logger)
	} else {
		app.routes.authenticator = apimw.NewAuthMiddleware(jwtService, nil, logger)
	}
	app.routes.auth = api.NewAuthHandler(userService, jwtService, tokenLifetime, loc, logger, authOpts...)

	if cfg.RateLimit.Enabled {
		if app.redis == nil {
			logger.Warn("rate limiting requires redis; rate limiting disabled")
		} else {
			window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			app.routes.limiter = redis.NewSlidingWindowLimiter(app.redis, cfg.RateLimit.Requests, window)
		}
	}

	logger.Info("application initialized")
	return app, nil
}

// Run starts the job runner and the index reconciler, then serves HTTP
// until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start job runner: %w", err)
	}

	reconcileCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.reconciler.Run(reconcileCtx)
	}()
	app.stopReconciler = func() {
		cancel()
		<-done
	}

	if err := app.startHTTPServer(ctx, newRouter(app.routes)); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work and closes connections.
func (app *application) cleanup() {
	if app.stopReconciler != nil {
		app.stopReconciler()
	}
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}

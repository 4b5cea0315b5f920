package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// startHTTPServer serves router until ctx is cancelled or the listener
// fails, then shuts down gracefully and releases the application's
// resources.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received, shutting down server")
	case err := <-serverErr:
		if err != nil {
			app.logger.Error("server failed", "error", err)
			runErr = err
		}
	}

	timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	app.cleanup()
	app.logger.Info("server shutdown completed")
	return runErr
}

package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// InMemoryEventEmitter hands task change events to in-process handlers, such
// as the search syncer, on the goroutine of the write that caused them.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(log *slog.Logger) *InMemoryEventEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: log.With(slog.String("component", "task_events")),
	}
}

// RegisterHandler subscribes handler to every later event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	n := len(e.handlers)
	e.mu.Unlock()

	e.logger.Debug("task event handler registered", slog.Int("handler_count", n))
}

// EmitEvent delivers event to each handler in registration order. An error
// or panic in one handler is logged and does not stop delivery to the rest;
// the first failure is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.mu.RUnlock()

	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))

	var firstErr error
	for i, handler := range handlers {
		err := deliver(ctx, handler, event)
		if err == nil {
			continue
		}
		log.Error("task event handler failed",
			slog.Int("handler_index", i),
			slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	log.Debug("task event delivered", slog.Int("handler_count", len(handlers)))
	return firstErr
}

func deliver(ctx context.Context, handler EventHandler, event *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked on %s: %v", event.Type, p)
		}
	}()
	return handler.HandleEvent(ctx, event)
}

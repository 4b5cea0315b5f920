package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskflow-api/internal/events"
)

// MockEventEmitter records emitted events.
type MockEventEmitter struct {
	Err error

	// EmitFn, when set, is called for every event and its error returned
	// instead of Err.
	EmitFn func(ctx context.Context, event *events.Event) error

	mu     sync.Mutex
	events []*events.Event
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements events.EventEmitter. The event is recorded even when
// Err is set.
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.EmitFn != nil {
		return m.EmitFn(ctx, event)
	}
	return m.Err
}

// Events returns the recorded events in emission order.
func (m *MockEventEmitter) Events() []*events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.Event(nil), m.events...)
}

// Types returns the types of the recorded events.
func (m *MockEventEmitter) Types() []string {
	evts := m.Events()
	types := make([]string, len(evts))
	for i, e := range evts {
		types[i] = e.Type
	}
	return types
}

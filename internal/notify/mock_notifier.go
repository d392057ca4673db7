package notify

import (
	"context"
	"sync"
)

// MockNotifier implements Notifier for testing. It records delivered events
// and can be configured to fail.
type MockNotifier struct {
	mu     sync.Mutex
	events []Event

	Err error
}

// Events returns a copy of the recorded events.
func (m *MockNotifier) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockNotifier) Notify(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

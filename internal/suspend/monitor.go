// Package suspend tracks the moderation lock state of the active
// conversation. The lock verdict is never authored locally: it is
// recomputed from the backend on every check, and while locked a fixed
// interval poll runs until the backend clears it.
package suspend

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
)

// DefaultPollInterval is how often the monitor re-checks a locked
// conversation.
const DefaultPollInterval = 10 * time.Second

// State is the derived suspension state. While Locked is true, outbound
// sends are rejected at the client boundary.
type State struct {
	Locked bool
	Reason string
}

// Monitor polls conversation lock status. At most one poll loop runs at a
// time, keyed by thread key; retargeting or stopping the monitor cancels it.
type Monitor struct {
	client   api.Client
	interval time.Duration
	onChange func(State)

	mu         sync.Mutex
	state      State
	threadKey  string
	pollCancel context.CancelFunc
}

// MonitorOpts holds parameters for creating a Monitor.
type MonitorOpts struct {
	Client       api.Client
	PollInterval time.Duration // defaults to DefaultPollInterval
	OnChange     func(State)   // optional; invoked on every lock transition
}

// NewMonitor creates a Monitor.
func NewMonitor(opts MonitorOpts) (*Monitor, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("suspend: client is required")
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		client:   opts.Client,
		interval: interval,
		onChange: opts.OnChange,
	}, nil
}

// State returns the current suspension state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Locked reports whether the conversation is currently suspended.
func (m *Monitor) Locked() bool {
	return m.State().Locked
}

// CheckOnce fetches the lock verdict for threadKey and applies it. A locked
// verdict starts the background poll; an unlocked verdict stops it. The
// check failing leaves the current state untouched.
func (m *Monitor) CheckOnce(ctx context.Context, threadKey string) (State, error) {
	status, err := m.client.GetStatus(ctx, threadKey)
	if err != nil {
		return m.State(), fmt.Errorf("suspend: check %s: %w", threadKey, err)
	}

	next := State{Locked: status.Suspended, Reason: status.Message}
	m.apply(threadKey, next)
	return next, nil
}

// apply records the new state, fires the transition callback, and manages
// the poll loop lifecycle.
func (m *Monitor) apply(threadKey string, next State) {
	m.mu.Lock()
	changed := next.Locked != m.state.Locked || next.Reason != m.state.Reason
	m.state = next
	m.threadKey = threadKey

	var toNotify func(State)
	if changed && m.onChange != nil {
		toNotify = m.onChange
	}

	if next.Locked {
		m.startPollLocked(threadKey)
	} else {
		m.stopPollLocked()
	}
	m.mu.Unlock()

	if toNotify != nil {
		toNotify(next)
	}
}

// startPollLocked launches the poll loop if none is running. Caller holds mu.
func (m *Monitor) startPollLocked(threadKey string) {
	if m.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel
	go m.poll(ctx, threadKey)
}

// stopPollLocked cancels a running poll loop. Caller holds mu.
func (m *Monitor) stopPollLocked() {
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// poll re-checks the lock at the configured interval until the backend
// reports unlocked or the loop is cancelled. Check failures keep the lock
// (and the loop) as they are.
func (m *Monitor) poll(ctx context.Context, threadKey string) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := m.client.GetStatus(ctx, threadKey)
			if err != nil {
				log.Printf("suspend: poll %s: %v", threadKey, err)
				continue
			}
			next := State{Locked: status.Suspended, Reason: status.Message}
			m.apply(threadKey, next)
			if !next.Locked {
				return
			}
		}
	}
}

// MarkLocked applies a lock observed out of band (a 423 rejection on a
// send) and starts the poll, exactly as a locked status check would.
func (m *Monitor) MarkLocked(threadKey, reason string) {
	m.apply(threadKey, State{Locked: true, Reason: reason})
}

// Retarget cancels any running poll because the thread key changed (new
// conversation). The lock state is reset; the caller is expected to
// CheckOnce against the new key.
func (m *Monitor) Retarget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPollLocked()
	m.state = State{}
	m.threadKey = ""
}

// Stop cancels any running poll. Used on widget teardown.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPollLocked()
}

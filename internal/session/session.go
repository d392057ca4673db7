// Package session implements the guest conversation session protocol: the
// state machine that decides, on every load and every message, which
// conversation the guest is in, whether it is safe to send, and how to
// recover from refreshes, rate limits, and moderation locks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/audio"
	"github.com/simoncinid/hostgpt-sub000/internal/notify"
	"github.com/simoncinid/hostgpt-sub000/internal/store"
	"github.com/simoncinid/hostgpt-sub000/internal/suspend"
)

// State names one phase of the session state machine.
type State string

const (
	// StateCold is the entry state before the load decision runs.
	StateCold State = "cold"
	// StateResuming is transient while a persisted conversation's messages
	// are being fetched.
	StateResuming State = "resuming"
	// StateIdentifying shows the identification gate; no sends possible.
	StateIdentifying State = "identifying"
	// StateActive is a resolved guest with a live conversation.
	StateActive State = "active"
)

// ErrSendInFlight rejects a second send while one is outstanding. A rapid
// double-submit would otherwise create two user messages before either
// reply returns.
var ErrSendInFlight = errors.New("session: a send is already in flight")

// Guest is the identified guest for this session.
type Guest struct {
	ID          string `json:"guest_id"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	IsFirstTime bool   `json:"is_first_time_guest"`
}

// EventType tags protocol events delivered to the UI layer.
type EventType string

const (
	EventState      EventType = "state"
	EventMessage    EventType = "message"
	EventSuspension EventType = "suspension"
	EventInfo       EventType = "info"
)

// Event is one protocol notification. Exactly one payload field is set,
// matching Type.
type Event struct {
	Type        EventType      `json:"type"`
	State       State          `json:"state,omitempty"`
	Message     *api.Message   `json:"message,omitempty"`
	Suspension  *suspend.State `json:"suspension,omitempty"`
	Info        *api.ChatInfo  `json:"info,omitempty"`
	GateVisible bool           `json:"gate_visible"`
}

// Engine drives one widget instance: exactly one active conversation, one
// suspension monitor, one optional recorder. All collaborators are injected.
type Engine struct {
	store    store.Store
	client   api.Client
	monitor  *suspend.Monitor
	recorder audio.Recorder
	notifier notify.Notifier
	onEvent  func(Event)
	newID    func() string
	now      func() time.Time

	mu                sync.Mutex
	fsmState          State
	guest             Guest
	identityConfirmed bool
	conversationID    string
	threadID          string
	reservedConvID    string // set by the silent-refresh path, consumed on identify
	messages          []api.Message
	info              *api.ChatInfo
	sendInFlight      bool
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	Store        store.Store
	Client       api.Client
	Recorder     audio.Recorder  // optional; voice sends fail without it
	Notifier     notify.Notifier // optional lock alerts
	PollInterval time.Duration   // suspension poll; defaults to suspend.DefaultPollInterval
	OnEvent      func(Event)     // optional; invoked for every protocol event
}

// NewEngine creates an Engine in StateCold.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("session: client is required")
	}

	e := &Engine{
		store:    opts.Store,
		client:   opts.Client,
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		onEvent:  opts.OnEvent,
		newID:    uuid.NewString,
		now:      time.Now,
		fsmState: StateCold,
	}

	monitor, err := suspend.NewMonitor(suspend.MonitorOpts{
		Client:       opts.Client,
		PollInterval: opts.PollInterval,
		OnChange:     e.onSuspensionChange,
	})
	if err != nil {
		return nil, err
	}
	e.monitor = monitor
	return e, nil
}

// State returns the current FSM state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fsmState
}

// GateVisible reports whether the identification gate must be shown: the
// active session has zero loaded messages and no confirmed identity for
// this load cycle.
func (e *Engine) GateVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateVisibleLocked()
}

func (e *Engine) gateVisibleLocked() bool {
	return len(e.messages) == 0 && !e.identityConfirmed
}

// Messages returns a copy of the loaded message history.
func (e *Engine) Messages() []api.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Guest returns the currently resolved guest (zero value when none).
func (e *Engine) Guest() Guest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guest
}

// ConversationID returns the active conversation id, if any.
func (e *Engine) ConversationID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conversationID
}

// ThreadID returns the bootstrapped thread id, if any.
func (e *Engine) ThreadID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threadID
}

// Info returns the cached chatbot info, if fetched.
func (e *Engine) Info() *api.ChatInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// Suspension returns the current lock state.
func (e *Engine) Suspension() suspend.State {
	return e.monitor.State()
}

// Close tears the widget down, cancelling the suspension poll.
func (e *Engine) Close() {
	e.monitor.Stop()
}

// threadKey returns the suspension check key: the thread id when
// bootstrapped, else a synthetic key derived from the conversation id.
func (e *Engine) threadKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threadKeyLocked()
}

func (e *Engine) threadKeyLocked() string {
	if e.threadID != "" {
		return e.threadID
	}
	if e.conversationID != "" {
		return "conv:" + e.conversationID
	}
	return ""
}

// setState transitions the FSM and emits a state event.
func (e *Engine) setState(next State) {
	e.mu.Lock()
	e.fsmState = next
	gate := e.gateVisibleLocked()
	e.mu.Unlock()
	e.emit(Event{Type: EventState, State: next, GateVisible: gate})
}

// appendMessage appends to the local history and emits a message event.
func (e *Engine) appendMessage(msg api.Message) {
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.mu.Unlock()
	e.emit(Event{Type: EventMessage, Message: &msg})
}

// emit delivers a protocol event to the UI layer.
func (e *Engine) emit(event Event) {
	if e.onEvent != nil {
		e.onEvent(event)
	}
}

// onSuspensionChange reacts to lock transitions from the monitor: emits the
// event and alerts the configured notifier (best-effort, off the hot path).
func (e *Engine) onSuspensionChange(s suspend.State) {
	e.emit(Event{Type: EventSuspension, Suspension: &s})

	if e.notifier == nil {
		return
	}
	e.mu.Lock()
	convID := e.conversationID
	propertyName := ""
	if e.info != nil {
		propertyName = e.info.PropertyName
	}
	e.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := e.notifier.Notify(ctx, notify.Event{
			PropertyName:   propertyName,
			ConversationID: convID,
			Locked:         s.Locked,
			Reason:         s.Reason,
			At:             e.now(),
		})
		if err != nil {
			log.Printf("session: notify lock transition: %v", err)
		}
	}()
}

// getKey reads a store key, treating store failures as unset. A broken
// store degrades to the identification gate instead of a dead widget.
func (e *Engine) getKey(key string) string {
	val, err := e.store.Get(key)
	if err != nil {
		log.Printf("session: read %s: %v", key, err)
		return ""
	}
	return val
}

// setKey writes a store key, logging failures.
func (e *Engine) setKey(key, value string) {
	if err := e.store.Set(key, value); err != nil {
		log.Printf("session: persist %s: %v", key, err)
	}
}

// removeKey deletes a store key, logging failures.
func (e *Engine) removeKey(key string) {
	if err := e.store.Remove(key); err != nil {
		log.Printf("session: remove %s: %v", key, err)
	}
}

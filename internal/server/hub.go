package server

import (
	"sync"

	"github.com/simoncinid/hostgpt-sub000/internal/session"
)

// Hub fans protocol events out to connected widget frontends. Wire it to
// the engine as its OnEvent callback.
type Hub struct {
	mu   sync.Mutex
	subs map[chan session.Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan session.Event]struct{})}
}

// Broadcast delivers an event to every subscriber. Slow subscribers drop
// events rather than block the protocol engine.
func (h *Hub) Broadcast(ev session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a new event consumer. The returned cancel func must
// be called when the consumer goes away.
func (h *Hub) Subscribe() (<-chan session.Event, func()) {
	ch := make(chan session.Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

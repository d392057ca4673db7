package session

import (
	"context"
	"log"
)

// refreshInfo fetches and caches the chatbot info, best-effort.
func (e *Engine) refreshInfo(ctx context.Context) {
	info, err := e.client.GetChatInfo(ctx)
	if err != nil {
		log.Printf("session: chat info: %v", err)
		return
	}
	e.mu.Lock()
	e.info = info
	e.mu.Unlock()
	e.emit(Event{Type: EventInfo, Info: info})
}

// RefreshInfo re-fetches the chatbot info. Used by the serve bridge's
// scheduled refresh.
func (e *Engine) RefreshInfo(ctx context.Context) {
	e.refreshInfo(ctx)
}

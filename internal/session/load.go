package session

import (
	"context"
	"log"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/store"
)

// Load runs the cold-entry decision table. Exactly one of three paths fires:
//
//   - resume: guest id and conversation id persisted, messages restorable
//   - silent refresh: guest id persisted but no conversation; a fresh
//     conversation is reserved but identity must be re-confirmed
//   - cold start: nothing persisted, identification gate only
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	e.fsmState = StateCold
	e.messages = nil
	e.identityConfirmed = false
	e.conversationID = ""
	e.threadID = ""
	e.reservedConvID = ""
	e.mu.Unlock()

	e.refreshInfo(ctx)

	guestID := e.getKey(store.KeyGuestID)
	convID := e.getKey(store.KeyConversationID)
	threadID := e.getKey(store.KeyThreadID)

	if guestID != "" {
		guest := Guest{
			ID:        guestID,
			Phone:     e.getKey(store.KeyGuestPhone),
			Email:     e.getKey(store.KeyGuestEmail),
			FirstName: e.getKey(store.KeyGuestFirstName),
			LastName:  e.getKey(store.KeyGuestLastName),
		}
		e.mu.Lock()
		e.guest = guest
		e.mu.Unlock()
	}

	switch {
	case guestID != "" && convID != "":
		return e.resume(ctx, convID, threadID)
	case guestID != "":
		return e.silentRefresh(ctx, guestID)
	default:
		e.setState(StateIdentifying)
		return nil
	}
}

// resume restores a persisted conversation. A failed or empty history fetch
// falls back to the identification gate; the suspension check runs either
// way, keyed by the thread id or the synthetic conversation key.
func (e *Engine) resume(ctx context.Context, convID, threadID string) error {
	e.setState(StateResuming)

	e.mu.Lock()
	e.conversationID = convID
	e.threadID = threadID
	e.mu.Unlock()

	msgs, err := e.client.ListConversationMessages(ctx, convID)
	switch {
	case err != nil:
		log.Printf("session: resume %s: %v", convID, err)
		e.setState(StateIdentifying)
	case len(msgs) == 0:
		e.setState(StateIdentifying)
	default:
		e.mu.Lock()
		e.messages = msgs
		e.identityConfirmed = true
		e.mu.Unlock()
		e.setState(StateActive)
	}

	e.checkSuspension(ctx)
	return nil
}

// silentRefresh is the named transition for a known guest whose conversation
// was abandoned: a brand-new conversation is reserved immediately (holding a
// slot against the per-guest quota), its id persisted, but its messages are
// deliberately not loaded. The guest must re-confirm contact details before
// seeing anything.
func (e *Engine) silentRefresh(ctx context.Context, guestID string) error {
	convID, err := e.client.CreateFreshConversation(ctx, guestID)
	if err != nil {
		// Reservation is opportunistic: identification can still resume an
		// existing conversation later.
		log.Printf("session: silent refresh: %v", err)
		e.setState(StateIdentifying)
		return nil
	}

	e.setKey(store.KeyConversationID, convID)
	e.mu.Lock()
	e.conversationID = convID
	e.reservedConvID = convID
	e.mu.Unlock()

	e.setState(StateIdentifying)
	return nil
}

// StartNewConversation abandons the active conversation: conversation and
// thread keys are cleared (guest identity is retained), the suspension poll
// is torn down, and the cold-entry logic runs again. The server-side record
// is not deleted.
func (e *Engine) StartNewConversation(ctx context.Context) error {
	e.monitor.Retarget()
	if err := e.store.Clear(store.ConversationKeys...); err != nil {
		return err
	}
	return e.Load(ctx)
}

// checkSuspension runs one lock check against the current thread key.
// Errors leave the previous verdict standing.
func (e *Engine) checkSuspension(ctx context.Context) {
	key := e.threadKey()
	if key == "" {
		return
	}
	if _, err := e.monitor.CheckOnce(ctx, key); err != nil {
		log.Printf("session: %v", err)
	}
}

// fetchMessages loads a conversation's history, tolerating failure (the
// welcome message will arrive with the first reply at worst).
func (e *Engine) fetchMessages(ctx context.Context, convID string) []api.Message {
	msgs, err := e.client.ListConversationMessages(ctx, convID)
	if err != nil {
		log.Printf("session: fetch messages %s: %v", convID, err)
		return nil
	}
	return msgs
}

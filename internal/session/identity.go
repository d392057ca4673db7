package session

import (
	"context"
	"strings"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
	"github.com/simoncinid/hostgpt-sub000/internal/store"
)

// Identity is the contact details entered at the identification gate. At
// least one of Phone or Email must be set.
type Identity struct {
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SubmitIdentity resolves the entered contact details against the backend
// and activates a conversation. Resolution order:
//
//  1. a conversation reserved by the silent-refresh path is reused,
//  2. else an existing conversation reported by the backend is resumed,
//  3. else a brand-new conversation is created with the welcome message.
//
// The resolved guest is persisted before conversation resolution, so a
// quota rejection on creation leaves the guest identified: the next attempt
// (or a later reload) does not re-enter contact details.
func (e *Engine) SubmitIdentity(ctx context.Context, ident Identity) error {
	phone := strings.TrimSpace(ident.Phone)
	email := strings.TrimSpace(ident.Email)
	if phone == "" && email == "" {
		return &chaterr.IdentityError{Reason: "a phone number or email address is required"}
	}

	e.mu.Lock()
	if e.sendInFlight {
		e.mu.Unlock()
		return ErrSendInFlight
	}
	e.sendInFlight = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.sendInFlight = false
		e.mu.Unlock()
	}()

	guest, res, err := e.resolveGuest(ctx, ident, phone, email)
	if err != nil {
		return err
	}

	e.mu.Lock()
	reserved := e.reservedConvID
	e.mu.Unlock()

	switch {
	case reserved != "":
		e.removeKey(store.KeyThreadID)
		e.activate(ctx, reserved, "")
	case res.HasExistingConversation && res.ExistingConversationID != "":
		e.setKey(store.KeyConversationID, res.ExistingConversationID)
		if res.ExistingThreadID != "" {
			e.setKey(store.KeyThreadID, res.ExistingThreadID)
		} else {
			e.removeKey(store.KeyThreadID)
		}
		e.activate(ctx, res.ExistingConversationID, res.ExistingThreadID)
	default:
		convID, err := e.client.CreateWelcomeConversation(ctx, guest.ID)
		if err != nil {
			// The guest stays identified; only the conversation is missing.
			return err
		}
		e.setKey(store.KeyConversationID, convID)
		e.removeKey(store.KeyThreadID)
		e.activate(ctx, convID, "")
	}

	e.checkSuspension(ctx)
	return nil
}

// resolveGuest is the identity resolution step: it asks the backend who the
// contact details belong to and persists every guest field, replacing any
// previous identity. The backend's existing-conversation pointer is passed
// through untouched for the caller to act on.
func (e *Engine) resolveGuest(ctx context.Context, ident Identity, phone, email string) (Guest, *api.Identification, error) {
	res, err := e.client.IdentifyGuest(ctx, phone, email)
	if err != nil {
		return Guest{}, nil, err
	}

	guest := Guest{
		ID:          res.GuestID,
		Phone:       phone,
		Email:       firstNonEmpty(res.Email, email),
		FirstName:   firstNonEmpty(res.FirstName, strings.TrimSpace(ident.FirstName)),
		LastName:    firstNonEmpty(res.LastName, strings.TrimSpace(ident.LastName)),
		IsFirstTime: res.IsFirstTimeGuest,
	}

	e.setKey(store.KeyGuestID, guest.ID)
	e.setKey(store.KeyGuestPhone, guest.Phone)
	e.setKey(store.KeyGuestEmail, guest.Email)
	e.setKey(store.KeyGuestFirstName, guest.FirstName)
	e.setKey(store.KeyGuestLastName, guest.LastName)

	e.mu.Lock()
	e.guest = guest
	e.mu.Unlock()
	return guest, res, nil
}

// activate puts the session into the active state on the given conversation,
// loading whatever history the backend already has for it. The thread id is
// replaced, not merged: an empty threadID discards whatever a previous
// conversation left behind, so the next send bootstraps a fresh thread.
func (e *Engine) activate(ctx context.Context, convID, threadID string) {
	msgs := e.fetchMessages(ctx, convID)

	e.mu.Lock()
	e.conversationID = convID
	e.threadID = threadID
	e.reservedConvID = ""
	e.messages = msgs
	e.identityConfirmed = true
	e.mu.Unlock()

	e.setState(StateActive)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

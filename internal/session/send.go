package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/audio"
	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
	"github.com/simoncinid/hostgpt-sub000/internal/store"
)

// Send delivers a text message on the active conversation and returns the
// assistant's reply. The guest's message is appended to the local history
// before the request goes out and is not removed on failure; the backend's
// idempotency key protects against duplicates on retry.
func (e *Engine) Send(ctx context.Context, content string) (*api.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("session: message is empty")
	}

	guest, threadID, err := e.beginSend()
	if err != nil {
		return nil, err
	}
	defer e.endSend()

	e.appendMessage(api.Message{
		ID:        e.newID(),
		Role:      "user",
		Content:   content,
		Timestamp: e.now(),
	})

	res, err := e.client.SendMessage(ctx, api.SendRequest{
		Content:        content,
		ThreadID:       threadID,
		Guest:          guest.fields(),
		IdempotencyKey: e.newID(),
	})
	if err != nil {
		e.noteSendFailure(err)
		return nil, err
	}

	e.adoptThread(res.ThreadID)
	e.appendMessage(res.Message)
	e.checkSuspension(ctx)
	return &res.Message, nil
}

// StartVoiceCapture begins recording a voice message. The send-side checks
// run up front so the microphone is never opened for a message that could
// not be sent anyway.
func (e *Engine) StartVoiceCapture(ctx context.Context) (audio.Capture, error) {
	if e.recorder == nil {
		return nil, &chaterr.MediaError{Kind: chaterr.MediaUnsupported, Detail: "no recorder configured"}
	}
	if err := e.checkSendable(); err != nil {
		return nil, err
	}
	return e.recorder.Start(ctx)
}

// SendVoice stops the capture and delivers the recording. An empty
// recording never reaches the network. On success the optimistic
// placeholder message is replaced by the backend's transcription.
func (e *Engine) SendVoice(ctx context.Context, capture audio.Capture) (*api.Message, error) {
	rec, err := capture.Stop()
	if err != nil {
		return nil, err
	}

	guest, threadID, err := e.beginSend()
	if err != nil {
		return nil, err
	}
	defer e.endSend()

	placeholder := api.Message{
		ID:        e.newID(),
		Role:      "user",
		Content:   "[voice message]",
		Timestamp: e.now(),
	}
	e.appendMessage(placeholder)

	res, err := e.client.SendVoiceMessage(ctx, api.VoiceRequest{
		Audio:          rec.Data,
		Filename:       "voice-message." + rec.Format.Extension,
		MimeType:       rec.Format.MimeType,
		ThreadID:       threadID,
		Guest:          guest.fields(),
		IdempotencyKey: e.newID(),
	})
	if err != nil {
		e.noteSendFailure(err)
		return nil, err
	}

	if res.TranscribedText != "" {
		e.updateMessage(placeholder.ID, res.TranscribedText)
	}
	e.adoptThread(res.ThreadID)
	e.appendMessage(res.Message)
	e.checkSuspension(ctx)
	return &res.Message, nil
}

// checkSendable verifies a send is currently allowed: the conversation is
// not locked and the session is active with an identified guest. The lock
// verdict is the monitor's cached one, so a locked conversation is rejected
// without a round trip.
func (e *Engine) checkSendable() error {
	if s := e.monitor.State(); s.Locked {
		return &chaterr.LockError{Reason: s.Reason}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fsmState != StateActive || e.guest.ID == "" {
		return &chaterr.IdentityError{Reason: "identify before sending messages"}
	}
	return nil
}

// beginSend runs the sendable checks and claims the single in-flight slot.
func (e *Engine) beginSend() (Guest, string, error) {
	if s := e.monitor.State(); s.Locked {
		return Guest{}, "", &chaterr.LockError{Reason: s.Reason}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fsmState != StateActive || e.guest.ID == "" {
		return Guest{}, "", &chaterr.IdentityError{Reason: "identify before sending messages"}
	}
	if e.sendInFlight {
		return Guest{}, "", ErrSendInFlight
	}
	e.sendInFlight = true
	return e.guest, e.threadID, nil
}

func (e *Engine) endSend() {
	e.mu.Lock()
	e.sendInFlight = false
	e.mu.Unlock()
}

// noteSendFailure inspects a failed send for a moderation lock. A 423 on
// send is the only place a lock can surface before the poller notices, so
// the monitor is told directly and starts polling for release.
func (e *Engine) noteSendFailure(err error) {
	var lockErr *chaterr.LockError
	if errors.As(err, &lockErr) {
		e.monitor.MarkLocked(e.threadKey(), lockErr.Reason)
	}
}

// adoptThread records the thread id returned by the first successful send.
// Later sends return the same id; only the first adoption is persisted.
func (e *Engine) adoptThread(threadID string) {
	if threadID == "" {
		return
	}
	e.mu.Lock()
	if e.threadID != "" {
		e.mu.Unlock()
		return
	}
	e.threadID = threadID
	e.mu.Unlock()
	e.setKey(store.KeyThreadID, threadID)
}

// updateMessage rewrites a local message's content in place, emitting a
// fresh message event for the UI.
func (e *Engine) updateMessage(id, content string) {
	e.mu.Lock()
	var updated *api.Message
	for i := range e.messages {
		if e.messages[i].ID == id {
			e.messages[i].Content = content
			m := e.messages[i]
			updated = &m
			break
		}
	}
	e.mu.Unlock()
	if updated != nil {
		e.emit(Event{Type: EventMessage, Message: updated})
	}
}

// fields converts the session guest to the request representation.
func (g Guest) fields() api.GuestFields {
	return api.GuestFields{
		GuestID:   g.ID,
		Phone:     g.Phone,
		Email:     g.Email,
		FirstName: g.FirstName,
		LastName:  g.LastName,
	}
}

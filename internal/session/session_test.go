package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/audio"
	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
	"github.com/simoncinid/hostgpt-sub000/internal/store"
)

func newTestEngine(t *testing.T, st store.Store, client api.Client, rec audio.Recorder) *Engine {
	t.Helper()
	e, err := NewEngine(EngineOpts{
		Store:        st,
		Client:       client,
		Recorder:     rec,
		PollInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func seedGuest(t *testing.T, st store.Store) {
	t.Helper()
	for k, v := range map[string]string{
		store.KeyGuestID:        "guest-7",
		store.KeyGuestPhone:     "+391234567",
		store.KeyGuestEmail:     "guest@example.com",
		store.KeyGuestFirstName: "Ada",
	} {
		if err := st.Set(k, v); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
}

func TestLoadColdStart(t *testing.T) {
	client := &api.MockClient{}
	e := newTestEngine(t, store.NewMemStore(), client, nil)

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := e.State(); got != StateIdentifying {
		t.Fatalf("state = %s, want %s", got, StateIdentifying)
	}
	if !e.GateVisible() {
		t.Fatal("identification gate should be visible on a cold start")
	}
	if n := client.CallCount("CreateFreshConversation"); n != 0 {
		t.Fatalf("cold start created %d conversations", n)
	}
}

func TestLoadResumesPersistedConversation(t *testing.T) {
	st := store.NewMemStore()
	seedGuest(t, st)
	st.Set(store.KeyConversationID, "conv-42")
	st.Set(store.KeyThreadID, "thread-42")

	history := []api.Message{
		{ID: "m1", Role: "assistant", Content: "Welcome back"},
		{ID: "m2", Role: "user", Content: "What is the wifi password?"},
	}
	client := &api.MockClient{
		ListFn: func(conversationID string) ([]api.Message, error) {
			if conversationID != "conv-42" {
				t.Errorf("listed %s, want conv-42", conversationID)
			}
			return history, nil
		},
	}
	e := newTestEngine(t, st, client, nil)

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := e.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	if e.GateVisible() {
		t.Fatal("gate should stay hidden on resume")
	}
	if got := len(e.Messages()); got != 2 {
		t.Fatalf("restored %d messages, want 2", got)
	}
	if got := e.Guest().Phone; got != "+391234567" {
		t.Fatalf("guest phone = %q", got)
	}
	if n := client.CallCount("CreateFreshConversation") + client.CallCount("CreateWelcomeConversation"); n != 0 {
		t.Fatalf("resume created %d conversations", n)
	}
	if n := client.CallCount("GetStatus"); n != 1 {
		t.Fatalf("resume ran %d suspension checks, want 1", n)
	}
}

func TestLoadResumeEmptyHistoryFallsBackToGate(t *testing.T) {
	st := store.NewMemStore()
	seedGuest(t, st)
	st.Set(store.KeyConversationID, "conv-42")

	client := &api.MockClient{}
	e := newTestEngine(t, st, client, nil)

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := e.State(); got != StateIdentifying {
		t.Fatalf("state = %s, want %s", got, StateIdentifying)
	}
	if !e.GateVisible() {
		t.Fatal("gate should be visible when the history is empty")
	}
}

func TestLoadSilentRefresh(t *testing.T) {
	st := store.NewMemStore()
	seedGuest(t, st)

	client := &api.MockClient{}
	e := newTestEngine(t, st, client, nil)

	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := e.State(); got != StateIdentifying {
		t.Fatalf("state = %s, want %s", got, StateIdentifying)
	}
	if !e.GateVisible() {
		t.Fatal("gate must be shown after a silent refresh")
	}
	if n := client.CallCount("CreateFreshConversation"); n != 1 {
		t.Fatalf("silent refresh created %d conversations, want 1", n)
	}
	if got, _ := st.Get(store.KeyConversationID); got != "conv-fresh" {
		t.Fatalf("persisted conversation id = %q, want conv-fresh", got)
	}
	if n := client.CallCount("ListConversationMessages"); n != 0 {
		t.Fatalf("silent refresh fetched history %d times, want 0", n)
	}
}

func TestSubmitIdentityRequiresContactMethod(t *testing.T) {
	client := &api.MockClient{}
	e := newTestEngine(t, store.NewMemStore(), client, nil)
	e.Load(context.Background())

	err := e.SubmitIdentity(context.Background(), Identity{FirstName: "Ada"})
	var idErr *chaterr.IdentityError
	if !errors.As(err, &idErr) {
		t.Fatalf("err = %v, want IdentityError", err)
	}
	if n := client.CallCount("IdentifyGuest"); n != 0 {
		t.Fatalf("invalid identity reached the backend %d times", n)
	}
}

func TestSubmitIdentityReusesReservedConversation(t *testing.T) {
	st := store.NewMemStore()
	seedGuest(t, st)

	client := &api.MockClient{}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())

	err := e.SubmitIdentity(context.Background(), Identity{Email: "guest@example.com"})
	if err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if got := e.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	if got := e.ConversationID(); got != "conv-fresh" {
		t.Fatalf("conversation = %q, want the reserved conv-fresh", got)
	}
	if n := client.CallCount("CreateWelcomeConversation"); n != 0 {
		t.Fatalf("reserved conversation was ignored, %d welcome creations", n)
	}
	if n := client.CallCount("CreateFreshConversation"); n != 1 {
		t.Fatalf("created %d fresh conversations, want 1", n)
	}
}

func TestSubmitIdentityResumesExistingConversation(t *testing.T) {
	st := store.NewMemStore()
	client := &api.MockClient{
		IdentifyFn: func(phone, email string) (*api.Identification, error) {
			return &api.Identification{
				GuestID:                 "guest-9",
				Email:                   email,
				FirstName:               "Grace",
				HasExistingConversation: true,
				ExistingConversationID:  "conv-old",
				ExistingThreadID:        "thread-old",
			}, nil
		},
		ListFn: func(conversationID string) ([]api.Message, error) {
			return []api.Message{{ID: "m1", Role: "assistant", Content: "hello again"}}, nil
		},
	}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())

	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if got := e.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	if got := e.ConversationID(); got != "conv-old" {
		t.Fatalf("conversation = %q, want conv-old", got)
	}
	if got := e.ThreadID(); got != "thread-old" {
		t.Fatalf("thread = %q, want thread-old", got)
	}
	if got, _ := st.Get(store.KeyConversationID); got != "conv-old" {
		t.Fatalf("persisted conversation id = %q", got)
	}
	if got := len(e.Messages()); got != 1 {
		t.Fatalf("restored %d messages, want 1", got)
	}
	if n := client.CallCount("CreateWelcomeConversation") + client.CallCount("CreateFreshConversation"); n != 0 {
		t.Fatalf("existing conversation triggered %d creations", n)
	}
	if got := e.Guest().FirstName; got != "Grace" {
		t.Fatalf("guest first name = %q, want Grace", got)
	}
}

func TestSubmitIdentityCreatesWelcomeConversation(t *testing.T) {
	st := store.NewMemStore()
	client := &api.MockClient{}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())

	if err := e.SubmitIdentity(context.Background(), Identity{Phone: "+39000"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if got := e.State(); got != StateActive {
		t.Fatalf("state = %s, want %s", got, StateActive)
	}
	if e.GateVisible() {
		t.Fatal("gate should close once the identity is confirmed")
	}
	if n := client.CallCount("CreateWelcomeConversation"); n != 1 {
		t.Fatalf("welcome creations = %d, want 1", n)
	}
	if got, _ := st.Get(store.KeyGuestID); got != "guest-1" {
		t.Fatalf("persisted guest id = %q", got)
	}
	if got, _ := st.Get(store.KeyConversationID); got != "conv-welcome" {
		t.Fatalf("persisted conversation id = %q", got)
	}
}

func TestWelcomeAfterEmptyResumeDropsStaleThread(t *testing.T) {
	st := store.NewMemStore()
	seedGuest(t, st)
	st.Set(store.KeyConversationID, "conv-old")
	st.Set(store.KeyThreadID, "thread-old")

	var sent []api.SendRequest
	client := &api.MockClient{
		ListFn: func(conversationID string) ([]api.Message, error) {
			return nil, nil
		},
		SendFn: func(req api.SendRequest) (*api.SendResult, error) {
			sent = append(sent, req)
			return &api.SendResult{
				ThreadID: "thread-new",
				Message:  api.Message{ID: "r", Role: "assistant", Content: "reply"},
			}, nil
		},
	}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())
	if got := e.State(); got != StateIdentifying {
		t.Fatalf("state = %s, want %s after an empty resume", got, StateIdentifying)
	}

	if err := e.SubmitIdentity(context.Background(), Identity{Phone: "+39000"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if got := e.ThreadID(); got != "" {
		t.Fatalf("thread id = %q, the abandoned conversation's thread must not carry over", got)
	}
	if got, _ := st.Get(store.KeyThreadID); got != "" {
		t.Fatalf("persisted thread id = %q, want cleared", got)
	}

	if _, err := e.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent[0].ThreadID != "" {
		t.Fatalf("first send on the new conversation carried thread %q, want none", sent[0].ThreadID)
	}
	if got, _ := st.Get(store.KeyThreadID); got != "thread-new" {
		t.Fatalf("persisted thread id = %q, want thread-new", got)
	}
}

func TestSubmitIdentityQuotaKeepsIdentity(t *testing.T) {
	st := store.NewMemStore()
	client := &api.MockClient{
		WelcomeFn: func(guestID string) (string, error) {
			return "", &chaterr.QuotaError{Message: "conversation limit reached"}
		},
	}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())

	err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"})
	var quotaErr *chaterr.QuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want QuotaError", err)
	}
	if got := e.State(); got != StateIdentifying {
		t.Fatalf("state = %s, want %s", got, StateIdentifying)
	}
	if got, _ := st.Get(store.KeyGuestID); got != "guest-1" {
		t.Fatalf("guest id = %q, identity must survive a quota rejection", got)
	}
	if got := e.Guest().ID; got != "guest-1" {
		t.Fatalf("in-memory guest id = %q", got)
	}
}

func TestSendBootstrapsThreadOnce(t *testing.T) {
	st := store.NewMemStore()
	var sent []api.SendRequest
	client := &api.MockClient{
		SendFn: func(req api.SendRequest) (*api.SendResult, error) {
			sent = append(sent, req)
			return &api.SendResult{
				ThreadID: "thread-9",
				Message:  api.Message{ID: "r", Role: "assistant", Content: "reply"},
			}, nil
		},
	}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	if _, err := e.Send(context.Background(), "first"); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if _, err := e.Send(context.Background(), "second"); err != nil {
		t.Fatalf("second Send: %v", err)
	}

	if sent[0].ThreadID != "" {
		t.Fatalf("first send carried thread %q, want none", sent[0].ThreadID)
	}
	if sent[1].ThreadID != "thread-9" {
		t.Fatalf("second send carried thread %q, want thread-9", sent[1].ThreadID)
	}
	if got, _ := st.Get(store.KeyThreadID); got != "thread-9" {
		t.Fatalf("persisted thread id = %q, want thread-9", got)
	}
	if sent[0].IdempotencyKey == "" || sent[0].IdempotencyKey == sent[1].IdempotencyKey {
		t.Fatalf("idempotency keys %q and %q must be distinct and non-empty",
			sent[0].IdempotencyKey, sent[1].IdempotencyKey)
	}
}

func TestSendRequiresIdentity(t *testing.T) {
	client := &api.MockClient{}
	e := newTestEngine(t, store.NewMemStore(), client, nil)
	e.Load(context.Background())

	_, err := e.Send(context.Background(), "hello")
	var idErr *chaterr.IdentityError
	if !errors.As(err, &idErr) {
		t.Fatalf("err = %v, want IdentityError", err)
	}
	if n := client.CallCount("SendMessage"); n != 0 {
		t.Fatalf("unidentified send reached the backend %d times", n)
	}
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &api.MockClient{
		SendFn: func(req api.SendRequest) (*api.SendResult, error) {
			close(started)
			<-release
			return &api.SendResult{
				ThreadID: "t",
				Message:  api.Message{ID: "r", Role: "assistant", Content: "reply"},
			}, nil
		},
	}
	e := newTestEngine(t, store.NewMemStore(), client, nil)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Send(context.Background(), "slow")
		done <- err
	}()
	<-started

	if _, err := e.Send(context.Background(), "eager"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("second send err = %v, want ErrSendInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first send: %v", err)
	}
	if n := client.CallCount("SendMessage"); n != 1 {
		t.Fatalf("backend saw %d sends, want 1", n)
	}
}

func TestSendFailureKeepsOptimisticMessage(t *testing.T) {
	client := &api.MockClient{
		SendFn: func(req api.SendRequest) (*api.SendResult, error) {
			return nil, &chaterr.TransientError{Op: "send message", Err: errors.New("boom")}
		},
	}
	e := newTestEngine(t, store.NewMemStore(), client, nil)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	if _, err := e.Send(context.Background(), "hello"); err == nil {
		t.Fatal("Send should fail")
	}
	msgs := e.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("local history = %+v, want the optimistic message preserved", msgs)
	}
}

func TestSendLockRejectedLocallyAfterwards(t *testing.T) {
	client := &api.MockClient{
		SendFn: func(req api.SendRequest) (*api.SendResult, error) {
			return nil, &chaterr.LockError{Reason: "conversation suspended for abusive content"}
		},
	}
	e := newTestEngine(t, store.NewMemStore(), client, nil)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	_, err := e.Send(context.Background(), "first")
	var lockErr *chaterr.LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("err = %v, want LockError", err)
	}

	if s := e.Suspension(); !s.Locked || s.Reason != "conversation suspended for abusive content" {
		t.Fatalf("suspension = %+v, want locked with the backend's reason", s)
	}

	_, err = e.Send(context.Background(), "second")
	if !errors.As(err, &lockErr) {
		t.Fatalf("err = %v, want local LockError", err)
	}
	if lockErr.Reason != "conversation suspended for abusive content" {
		t.Fatalf("local rejection reason = %q", lockErr.Reason)
	}
	if n := client.CallCount("SendMessage"); n != 1 {
		t.Fatalf("backend saw %d sends, want 1 (second rejected locally)", n)
	}
}

func TestSendVoiceEmptyRecordingNeverSent(t *testing.T) {
	client := &api.MockClient{}
	rec := &audio.MockRecorder{} // no data configured
	e := newTestEngine(t, store.NewMemStore(), client, rec)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	capture, err := e.StartVoiceCapture(context.Background())
	if err != nil {
		t.Fatalf("StartVoiceCapture: %v", err)
	}
	_, err = e.SendVoice(context.Background(), capture)
	var mediaErr *chaterr.MediaError
	if !errors.As(err, &mediaErr) || mediaErr.Kind != chaterr.MediaEmptyRecording {
		t.Fatalf("err = %v, want empty-recording MediaError", err)
	}
	if n := client.CallCount("SendVoiceMessage"); n != 0 {
		t.Fatalf("empty recording reached the backend %d times", n)
	}
	if !capture.(*audio.MockCapture).Released() {
		t.Fatal("microphone must be released after an empty recording")
	}
	if got := len(e.Messages()); got != 0 {
		t.Fatalf("local history has %d messages, want 0", got)
	}
}

func TestSendVoiceReplacesPlaceholderWithTranscription(t *testing.T) {
	client := &api.MockClient{
		VoiceFn: func(req api.VoiceRequest) (*api.SendResult, error) {
			if len(req.Audio) == 0 {
				t.Error("voice request carried no audio")
			}
			if req.Filename != "voice-message.ogg" {
				t.Errorf("filename = %q, want voice-message.ogg", req.Filename)
			}
			return &api.SendResult{
				ThreadID:        "thread-v",
				Message:         api.Message{ID: "r", Role: "assistant", Content: "the wifi password is on the fridge"},
				TranscribedText: "what is the wifi password",
			}, nil
		},
	}
	rec := &audio.MockRecorder{Data: []byte("opus-bytes")}
	e := newTestEngine(t, store.NewMemStore(), client, rec)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}

	capture, err := e.StartVoiceCapture(context.Background())
	if err != nil {
		t.Fatalf("StartVoiceCapture: %v", err)
	}
	if _, err := e.SendVoice(context.Background(), capture); err != nil {
		t.Fatalf("SendVoice: %v", err)
	}

	msgs := e.Messages()
	if len(msgs) != 2 {
		t.Fatalf("history has %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "what is the wifi password" {
		t.Fatalf("placeholder content = %q, want the transcription", msgs[0].Content)
	}
	if got := e.ThreadID(); got != "thread-v" {
		t.Fatalf("thread = %q, want thread-v", got)
	}
}

func TestStartVoiceCaptureWithoutRecorder(t *testing.T) {
	e := newTestEngine(t, store.NewMemStore(), &api.MockClient{}, nil)
	e.Load(context.Background())

	_, err := e.StartVoiceCapture(context.Background())
	var mediaErr *chaterr.MediaError
	if !errors.As(err, &mediaErr) || mediaErr.Kind != chaterr.MediaUnsupported {
		t.Fatalf("err = %v, want unsupported MediaError", err)
	}
}

func TestStartNewConversationKeepsGuest(t *testing.T) {
	st := store.NewMemStore()
	client := &api.MockClient{}
	e := newTestEngine(t, st, client, nil)
	e.Load(context.Background())
	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if _, err := e.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := e.StartNewConversation(context.Background()); err != nil {
		t.Fatalf("StartNewConversation: %v", err)
	}
	if got := e.State(); got != StateIdentifying {
		t.Fatalf("state = %s, want %s", got, StateIdentifying)
	}
	if got, _ := st.Get(store.KeyGuestID); got != "guest-1" {
		t.Fatalf("guest id = %q, guest identity must survive", got)
	}
	if got, _ := st.Get(store.KeyThreadID); got != "" {
		t.Fatalf("thread id = %q, want cleared", got)
	}
	// The retained guest triggers a silent refresh with a fresh reservation.
	if n := client.CallCount("CreateFreshConversation"); n != 1 {
		t.Fatalf("fresh creations = %d, want 1", n)
	}
	if got, _ := st.Get(store.KeyConversationID); got != "conv-fresh" {
		t.Fatalf("conversation id = %q, want the new reservation", got)
	}
}

func TestSubmitCheckinRequiresIdentity(t *testing.T) {
	client := &api.MockClient{}
	e := newTestEngine(t, store.NewMemStore(), client, nil)
	e.Load(context.Background())

	err := e.SubmitCheckin(context.Background(), []api.CheckinFile{{Name: "passport.jpg"}})
	var idErr *chaterr.IdentityError
	if !errors.As(err, &idErr) {
		t.Fatalf("err = %v, want IdentityError", err)
	}

	if err := e.SubmitIdentity(context.Background(), Identity{Email: "g@example.com"}); err != nil {
		t.Fatalf("SubmitIdentity: %v", err)
	}
	if err := e.SubmitCheckin(context.Background(), []api.CheckinFile{{Name: "passport.jpg"}}); err != nil {
		t.Fatalf("SubmitCheckin: %v", err)
	}
	if n := client.CallCount("SubmitCheckinDocuments"); n != 1 {
		t.Fatalf("checkin uploads = %d, want 1", n)
	}
}

func TestEventsCarryStateTransitions(t *testing.T) {
	var events []Event
	st := store.NewMemStore()
	client := &api.MockClient{}
	e, err := NewEngine(EngineOpts{
		Store:        st,
		Client:       client,
		PollInterval: time.Hour,
		OnEvent:      func(ev Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	e.Load(context.Background())

	var states []State
	for _, ev := range events {
		if ev.Type == EventState {
			states = append(states, ev.State)
		}
	}
	if len(states) == 0 || states[len(states)-1] != StateIdentifying {
		t.Fatalf("state events = %v, want to end in %s", states, StateIdentifying)
	}
}

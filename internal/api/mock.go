package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockClient implements Client for testing. Behavior is configured through
// the *Fn fields; unset functions return benign defaults. Every call is
// recorded (operation name plus key argument) so tests can assert exactly
// which backend operations happened, and how many times.
type MockClient struct {
	mu sync.Mutex

	InfoFn     func() (*ChatInfo, error)
	IdentifyFn func(phone, email string) (*Identification, error)
	FreshFn    func(guestID string) (string, error)
	WelcomeFn  func(guestID string) (string, error)
	ListFn     func(conversationID string) ([]Message, error)
	SendFn     func(req SendRequest) (*SendResult, error)
	VoiceFn    func(req VoiceRequest) (*SendResult, error)
	StatusFn   func(threadKey string) (*Status, error)
	CheckinFn  func(files []CheckinFile, guest GuestFields) error

	calls []string
}

func (m *MockClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns a copy of the recorded call log.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many recorded calls start with prefix.
func (m *MockClient) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *MockClient) GetChatInfo(ctx context.Context) (*ChatInfo, error) {
	m.record("GetChatInfo")
	if m.InfoFn != nil {
		return m.InfoFn()
	}
	return &ChatInfo{Name: "Mock Chatbot", WelcomeMessage: "Welcome!"}, nil
}

func (m *MockClient) IdentifyGuest(ctx context.Context, phone, email string) (*Identification, error) {
	m.record(fmt.Sprintf("IdentifyGuest(%s,%s)", phone, email))
	if m.IdentifyFn != nil {
		return m.IdentifyFn(phone, email)
	}
	return &Identification{GuestID: "guest-1", Email: email}, nil
}

func (m *MockClient) CreateFreshConversation(ctx context.Context, guestID string) (string, error) {
	m.record("CreateFreshConversation(" + guestID + ")")
	if m.FreshFn != nil {
		return m.FreshFn(guestID)
	}
	return "conv-fresh", nil
}

func (m *MockClient) CreateWelcomeConversation(ctx context.Context, guestID string) (string, error) {
	m.record("CreateWelcomeConversation(" + guestID + ")")
	if m.WelcomeFn != nil {
		return m.WelcomeFn(guestID)
	}
	return "conv-welcome", nil
}

func (m *MockClient) ListConversationMessages(ctx context.Context, conversationID string) ([]Message, error) {
	m.record("ListConversationMessages(" + conversationID + ")")
	if m.ListFn != nil {
		return m.ListFn(conversationID)
	}
	return nil, nil
}

func (m *MockClient) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	m.record("SendMessage(" + req.Content + ")")
	if m.SendFn != nil {
		return m.SendFn(req)
	}
	return &SendResult{
		ThreadID: "thread-1",
		Message:  Message{ID: "m-1", Role: "assistant", Content: "mock reply"},
	}, nil
}

func (m *MockClient) SendVoiceMessage(ctx context.Context, req VoiceRequest) (*SendResult, error) {
	m.record("SendVoiceMessage(" + req.Filename + ")")
	if m.VoiceFn != nil {
		return m.VoiceFn(req)
	}
	return &SendResult{
		ThreadID:        "thread-1",
		Message:         Message{ID: "m-1", Role: "assistant", Content: "mock voice reply"},
		TranscribedText: "mock transcription",
	}, nil
}

func (m *MockClient) GetStatus(ctx context.Context, threadKey string) (*Status, error) {
	m.record("GetStatus(" + threadKey + ")")
	if m.StatusFn != nil {
		return m.StatusFn(threadKey)
	}
	return &Status{Suspended: false}, nil
}

func (m *MockClient) SubmitCheckinDocuments(ctx context.Context, files []CheckinFile, guest GuestFields) error {
	m.record(fmt.Sprintf("SubmitCheckinDocuments(%d)", len(files)))
	if m.CheckinFn != nil {
		return m.CheckinFn(files, guest)
	}
	return nil
}

// Package api implements the typed HTTP client for the HostGPT guest
// backend. All requests are scoped to one property (chatbot) identifier.
// Failure responses are mapped to the chaterr taxonomy in exactly one place
// (decodeError), so the protocol engine never inspects status codes.
package api

import (
	"context"
	"time"
)

// Message is one chat message in a conversation, insertion-ordered by the
// backend. Role is "user" or "assistant".
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatInfo describes the property chatbot: display name, welcome message,
// and the property facts the assistant is scoped to.
type ChatInfo struct {
	Name           string `json:"name"`
	PropertyName   string `json:"property_name"`
	WelcomeMessage string `json:"welcome_message"`
	HouseRules     string `json:"house_rules"`
	WifiInfo       string `json:"wifi_info,omitempty"`
	HasWifiQRCode  bool   `json:"has_wifi_qr_code"`
}

// Identification is the backend's answer to an identify call. When the
// contact details match a guest with a live conversation, the existing
// conversation pointer is set; only the session reconciler acts on it.
type Identification struct {
	GuestID                 string `json:"guest_id"`
	Email                   string `json:"email"`
	FirstName               string `json:"first_name"`
	LastName                string `json:"last_name"`
	IsFirstTimeGuest        bool   `json:"is_first_time_guest"`
	HasExistingConversation bool   `json:"has_existing_conversation"`
	ExistingConversationID  string `json:"existing_conversation_id,omitempty"`
	ExistingThreadID        string `json:"existing_thread_id,omitempty"`
}

// GuestFields carries the identified guest's details on send and upload
// requests.
type GuestFields struct {
	GuestID   string `json:"guest_id"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// SendRequest is a text message send.
type SendRequest struct {
	Content        string      `json:"content"`
	ThreadID       string      `json:"thread_id,omitempty"`
	Guest          GuestFields `json:"guest"`
	IdempotencyKey string      `json:"-"`
}

// VoiceRequest is a voice message send. Audio is the encoded recording.
type VoiceRequest struct {
	Audio          []byte
	Filename       string
	MimeType       string
	ThreadID       string
	Guest          GuestFields
	IdempotencyKey string
}

// SendResult is the backend's reply to a (text or voice) send. ThreadID is
// always populated; on the first send of a conversation it is the newly
// bootstrapped thread id.
type SendResult struct {
	ThreadID        string  `json:"thread_id"`
	Message         Message `json:"message"`
	TranscribedText string  `json:"transcribed_text,omitempty"`
}

// Status is the moderation verdict for a thread key.
type Status struct {
	Suspended bool   `json:"suspended"`
	Message   string `json:"message"`
}

// CheckinFile is one document uploaded for check-in.
type CheckinFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Client is the backend collaborator interface the protocol engine depends
// on. MockClient implements it for tests.
type Client interface {
	GetChatInfo(ctx context.Context) (*ChatInfo, error)
	IdentifyGuest(ctx context.Context, phone, email string) (*Identification, error)
	CreateFreshConversation(ctx context.Context, guestID string) (string, error)
	CreateWelcomeConversation(ctx context.Context, guestID string) (string, error)
	ListConversationMessages(ctx context.Context, conversationID string) ([]Message, error)
	SendMessage(ctx context.Context, req SendRequest) (*SendResult, error)
	SendVoiceMessage(ctx context.Context, req VoiceRequest) (*SendResult, error)
	GetStatus(ctx context.Context, threadKey string) (*Status, error)
	SubmitCheckinDocuments(ctx context.Context, files []CheckinFile, guest GuestFields) error
}

// Package store persists widget state across runs, namespaced per property
// (chatbot) identifier. It is the durable analog of the browser widget's
// localStorage: plain string keys, absence means "unset", never an error.
package store

// Well-known state keys. All values are plain strings.
const (
	KeyGuestID        = "guest_id"
	KeyGuestPhone     = "guest_phone"
	KeyGuestEmail     = "guest_email"
	KeyGuestFirstName = "guest_first_name"
	KeyGuestLastName  = "guest_last_name"
	KeyConversationID = "conversation_id"
	KeyThreadID       = "thread_id"
)

// GuestKeys are the identity-related keys written by identification and
// retained when a conversation is abandoned.
var GuestKeys = []string{
	KeyGuestID, KeyGuestPhone, KeyGuestEmail, KeyGuestFirstName, KeyGuestLastName,
}

// ConversationKeys are cleared by an explicit "start new conversation"
// request, returning the client to the identification gate.
var ConversationKeys = []string{KeyConversationID, KeyThreadID}

// Store is the injected persistence adapter. Implementations are scoped to
// one property id at construction time.
type Store interface {
	// Get returns the value for key, or "" if unset. A missing key is not
	// an error.
	Get(key string) (string, error)

	// Set writes the value for key, overwriting any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error

	// Clear removes all the given keys.
	Clear(keys ...string) error
}

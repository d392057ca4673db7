// Package notify alerts kiosk operators about moderation lock transitions
// on the guest conversation (Slack or Discord). Notifications are
// best-effort: a failed delivery is logged, never propagated into the
// session protocol.
package notify

import (
	"context"
	"time"
)

// Event describes one lock transition.
type Event struct {
	PropertyName   string
	ConversationID string
	Locked         bool
	Reason         string
	At             time.Time
}

// Notifier delivers lock transition events to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans one event out to several notifiers, returning the first error
// after attempting all of them.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// titleFor builds the notification headline.
func titleFor(event Event) string {
	if event.Locked {
		return "Conversation locked"
	}
	return "Conversation unlocked"
}

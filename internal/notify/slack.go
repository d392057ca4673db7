package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// Lock state colors for Slack attachments.
const (
	colorLocked   = "#e01e5a"
	colorUnlocked = "#2eb67d"
)

// webhookPoster abstracts the Slack webhook call, enabling test mocks.
type webhookPoster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// SlackNotifier posts lock transitions to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	post       webhookPoster
}

// NewSlackNotifier creates a SlackNotifier for the given incoming webhook URL.
func NewSlackNotifier(webhookURL string) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("notify: slack webhook url is required")
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		post:       slackapi.PostWebhookContext,
	}, nil
}

// Notify posts the event as a colored attachment.
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	color := colorUnlocked
	if event.Locked {
		color = colorLocked
	}

	attachment := slackapi.Attachment{
		Title: titleFor(event),
		Text:  event.Reason,
		Color: color,
		Fields: []slackapi.AttachmentField{
			{Title: "Property", Value: event.PropertyName, Short: true},
			{Title: "Conversation", Value: event.ConversationID, Short: true},
		},
		Footer: event.At.UTC().Format("2006-01-02 15:04:05 UTC"),
	}

	msg := &slackapi.WebhookMessage{Attachments: []slackapi.Attachment{attachment}}
	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("notify: slack webhook: %w", err)
	}
	return nil
}

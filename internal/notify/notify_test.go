package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

func TestNewSlackNotifier_Validation(t *testing.T) {
	if _, err := NewSlackNotifier(""); err == nil {
		t.Error("expected error for empty webhook url")
	}
}

func TestSlackNotifier_PostsAttachment(t *testing.T) {
	var gotURL string
	var gotMsg *slackapi.WebhookMessage
	n := &SlackNotifier{
		webhookURL: "https://hooks.slack.example/T123",
		post: func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error {
			gotURL = url
			gotMsg = msg
			return nil
		},
	}

	err := n.Notify(context.Background(), Event{
		PropertyName:   "Casa Bella",
		ConversationID: "conv-7",
		Locked:         true,
		Reason:         "Host is reviewing this conversation",
		At:             time.Now(),
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotURL != "https://hooks.slack.example/T123" {
		t.Errorf("url = %q", gotURL)
	}
	if len(gotMsg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(gotMsg.Attachments))
	}
	att := gotMsg.Attachments[0]
	if att.Title != "Conversation locked" {
		t.Errorf("title = %q", att.Title)
	}
	if att.Color != colorLocked {
		t.Errorf("color = %q", att.Color)
	}
	if att.Text != "Host is reviewing this conversation" {
		t.Errorf("text = %q", att.Text)
	}
}

func TestSlackNotifier_UnlockedColor(t *testing.T) {
	var gotMsg *slackapi.WebhookMessage
	n := &SlackNotifier{
		webhookURL: "https://hooks.slack.example/T123",
		post: func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error {
			gotMsg = msg
			return nil
		},
	}

	n.Notify(context.Background(), Event{Locked: false})
	if gotMsg.Attachments[0].Color != colorUnlocked {
		t.Errorf("color = %q, want unlocked green", gotMsg.Attachments[0].Color)
	}
	if gotMsg.Attachments[0].Title != "Conversation unlocked" {
		t.Errorf("title = %q", gotMsg.Attachments[0].Title)
	}
}

// fakeDiscordSession records sent embeds.
type fakeDiscordSession struct {
	channelID string
	embed     *discordgo.MessageEmbed
	err       error
}

func (f *fakeDiscordSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelID = channelID
	f.embed = embed
	return &discordgo.Message{}, f.err
}

func TestNewDiscordNotifier_Validation(t *testing.T) {
	if _, err := NewDiscordNotifier("", "chan"); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewDiscordNotifier("token", ""); err == nil {
		t.Error("expected error for empty channel")
	}
}

func TestDiscordNotifier_SendsEmbed(t *testing.T) {
	sess := &fakeDiscordSession{}
	n := &DiscordNotifier{sess: sess, channelID: "chan-1"}

	err := n.Notify(context.Background(), Event{
		PropertyName: "Casa Bella",
		Locked:       true,
		Reason:       "under review",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sess.channelID != "chan-1" {
		t.Errorf("channel = %q", sess.channelID)
	}
	if sess.embed.Color != embedColorLocked {
		t.Errorf("color = %#x", sess.embed.Color)
	}
	if sess.embed.Fields[1].Value != "-" {
		t.Errorf("empty conversation field = %q, want placeholder", sess.embed.Fields[1].Value)
	}
}

func TestMulti_AttemptsAllReturnsFirstError(t *testing.T) {
	failed := &MockNotifier{Err: errors.New("down")}
	ok := &MockNotifier{}
	m := Multi{failed, ok}

	err := m.Notify(context.Background(), Event{Locked: true})
	if err == nil {
		t.Fatal("expected first error to propagate")
	}
	if len(ok.Events()) != 1 {
		t.Error("second notifier should still be attempted")
	}
}

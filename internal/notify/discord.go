package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Embed sidebar colors for lock state.
const (
	embedColorLocked   = 0xe01e5a
	embedColorUnlocked = 0x2eb67d
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts lock transitions to a Discord channel.
type DiscordNotifier struct {
	sess      discordSession
	channelID string
}

// NewDiscordNotifier creates a DiscordNotifier using a bot token. The
// session is REST-only; no gateway connection is opened.
func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("notify: discord bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("notify: discord channel id is required")
	}
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordNotifier{sess: sess, channelID: channelID}, nil
}

// Notify posts the event as an embed.
func (n *DiscordNotifier) Notify(ctx context.Context, event Event) error {
	color := embedColorUnlocked
	if event.Locked {
		color = embedColorLocked
	}

	embed := &discordgo.MessageEmbed{
		Title:       titleFor(event),
		Description: event.Reason,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Property", Value: orDash(event.PropertyName), Inline: true},
			{Name: "Conversation", Value: orDash(event.ConversationID), Inline: true},
		},
	}

	if _, err := n.sess.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}

// orDash substitutes a placeholder for empty embed field values, which
// Discord rejects.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

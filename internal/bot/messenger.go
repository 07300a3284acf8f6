package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLength is Discord's limit for one message.
const MaxMessageLength = 2000

// ChannelMessenger sends engine replies as channel messages.
type ChannelMessenger struct {
	session *discordgo.Session
}

// NewChannelMessenger creates a messenger over session.
func NewChannelMessenger(session *discordgo.Session) *ChannelMessenger {
	return &ChannelMessenger{session: session}
}

// Send implements game.Messenger.
func (m *ChannelMessenger) Send(ctx context.Context, channelID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.session.ChannelMessageSend(snowflake(channelID), Truncate(text, MaxMessageLength)); err != nil {
		return fmt.Errorf("failed to send message to channel %d: %w", channelID, err)
	}
	return nil
}

// Truncate cuts text to at most limit runes, marking the cut with an ellipsis.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}

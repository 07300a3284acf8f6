package bot

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"points-game-bot/internal/presence"
	"points-game-bot/internal/service"
)

// Event is a gateway event normalized for the engine.
type Event interface {
	Guild() int64
	User() int64
	Kind() string
}

// MessageEvent is a chat message.
type MessageEvent struct {
	service.Message
}

// Guild implements Event.
func (e MessageEvent) Guild() int64 { return e.GuildID }

// User implements Event.
func (e MessageEvent) User() int64 { return e.UserID }

// Kind implements Event.
func (MessageEvent) Kind() string { return "message" }

// VoiceEvent is a voice state transition.
type VoiceEvent struct {
	Member presence.Member
	Before presence.VoiceState
	After  presence.VoiceState
}

// Guild implements Event.
func (e VoiceEvent) Guild() int64 { return e.Member.GuildID }

// User implements Event.
func (e VoiceEvent) User() int64 { return e.Member.UserID }

// Kind implements Event.
func (VoiceEvent) Kind() string { return "voice" }

// GuildEvent reports a guild becoming available together with the members
// currently connected to voice.
type GuildEvent struct {
	GuildID int64
	Members []presence.Member
}

// Guild implements Event.
func (e GuildEvent) Guild() int64 { return e.GuildID }

// User implements Event.
func (GuildEvent) User() int64 { return 0 }

// Kind implements Event.
func (GuildEvent) Kind() string { return "guild" }

// ParseSnowflake converts a Discord id. Empty or malformed ids map to 0.
func ParseSnowflake(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func messageEvent(m *discordgo.Message) MessageEvent {
	msg := service.Message{
		GuildID:   ParseSnowflake(m.GuildID),
		ChannelID: ParseSnowflake(m.ChannelID),
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.UserID = ParseSnowflake(m.Author.ID)
		msg.Bot = m.Author.Bot
	}
	return MessageEvent{Message: msg}
}

func voiceState(vs *discordgo.VoiceState) presence.VoiceState {
	if vs == nil {
		return presence.VoiceState{}
	}
	return presence.VoiceState{
		ChannelID: ParseSnowflake(vs.ChannelID),
		Mute:      vs.Mute,
		SelfMute:  vs.SelfMute,
	}
}

func voiceEvent(v *discordgo.VoiceStateUpdate, bot bool) VoiceEvent {
	return VoiceEvent{
		Member: presence.Member{
			GuildID: ParseSnowflake(v.GuildID),
			UserID:  ParseSnowflake(v.UserID),
			Bot:     bot,
		},
		Before: voiceState(v.BeforeUpdate),
		After:  voiceState(v.VoiceState),
	}
}

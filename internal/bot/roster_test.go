package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"points-game-bot/internal/presence"
)

func newTestState(t *testing.T) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: "1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "1", UserID: "10", ChannelID: "100"},
			{GuildID: "1", UserID: "11", ChannelID: "100", SelfMute: true},
			{GuildID: "1", UserID: "12", ChannelID: "100", Member: &discordgo.Member{User: &discordgo.User{ID: "12", Bot: true}}},
			{GuildID: "1", UserID: "13", ChannelID: "200"},
		},
		Members: []*discordgo.Member{
			{GuildID: "1", User: &discordgo.User{ID: "13", Bot: true}},
		},
	}))
	return state
}

func TestStateRosterVoiceState(t *testing.T) {
	r := NewStateRoster(newTestState(t))

	vs, ok := r.VoiceState(1, 11)
	require.True(t, ok)
	assert.Equal(t, presence.VoiceState{ChannelID: 100, SelfMute: true}, vs)

	_, ok = r.VoiceState(1, 99)
	assert.False(t, ok)
	_, ok = r.VoiceState(2, 10)
	assert.False(t, ok)
}

func TestStateRosterChannelMembers(t *testing.T) {
	r := NewStateRoster(newTestState(t))

	assert.ElementsMatch(t, []presence.Member{
		{GuildID: 1, UserID: 10},
		{GuildID: 1, UserID: 11},
		{GuildID: 1, UserID: 12, Bot: true},
	}, r.ChannelMembers(1, 100))

	assert.Equal(t, []presence.Member{{GuildID: 1, UserID: 13, Bot: true}}, r.ChannelMembers(1, 200))
	assert.Empty(t, r.ChannelMembers(1, 300))
	assert.Nil(t, r.ChannelMembers(2, 100))
}

func TestStateRosterConnected(t *testing.T) {
	r := NewStateRoster(newTestState(t))
	assert.Len(t, r.connected(1), 4)
	assert.Nil(t, r.connected(2))
}

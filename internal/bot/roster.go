package bot

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"points-game-bot/internal/presence"
)

// StateRoster answers presence queries from the gateway's state cache.
type StateRoster struct {
	state *discordgo.State
}

// NewStateRoster creates a roster over state.
func NewStateRoster(state *discordgo.State) *StateRoster {
	return &StateRoster{state: state}
}

// VoiceState implements presence.Roster.
func (r *StateRoster) VoiceState(guildID, userID int64) (presence.VoiceState, bool) {
	guild, err := r.state.Guild(snowflake(guildID))
	if err != nil {
		return presence.VoiceState{}, false
	}

	uid := snowflake(userID)
	r.state.RLock()
	defer r.state.RUnlock()
	for _, vs := range guild.VoiceStates {
		if vs.UserID == uid {
			return voiceState(vs), true
		}
	}
	return presence.VoiceState{}, false
}

// ChannelMembers implements presence.Roster.
func (r *StateRoster) ChannelMembers(guildID, channelID int64) []presence.Member {
	gid := snowflake(guildID)
	guild, err := r.state.Guild(gid)
	if err != nil {
		return nil
	}

	cid := snowflake(channelID)
	var states []*discordgo.VoiceState
	r.state.RLock()
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == cid {
			states = append(states, vs)
		}
	}
	r.state.RUnlock()

	members := make([]presence.Member, 0, len(states))
	for _, vs := range states {
		members = append(members, presence.Member{
			GuildID: guildID,
			UserID:  ParseSnowflake(vs.UserID),
			Bot:     r.isBot(gid, vs),
		})
	}
	return members
}

// connected lists the guild's members currently in voice.
func (r *StateRoster) connected(guildID int64) []presence.Member {
	gid := snowflake(guildID)
	guild, err := r.state.Guild(gid)
	if err != nil {
		return nil
	}

	r.state.RLock()
	states := append([]*discordgo.VoiceState(nil), guild.VoiceStates...)
	r.state.RUnlock()

	members := make([]presence.Member, 0, len(states))
	for _, vs := range states {
		if vs.ChannelID == "" {
			continue
		}
		members = append(members, presence.Member{
			GuildID: guildID,
			UserID:  ParseSnowflake(vs.UserID),
			Bot:     r.isBot(gid, vs),
		})
	}
	return members
}

// isBot prefers the member embedded in the voice state and falls back to the
// member cache. Unknown members count as humans.
func (r *StateRoster) isBot(guildID string, vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	m, err := r.state.Member(guildID, vs.UserID)
	if err != nil || m.User == nil {
		return false
	}
	return m.User.Bot
}

func snowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

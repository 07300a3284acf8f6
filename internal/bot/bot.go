// Package bot connects the interaction engine to the Discord gateway.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"points-game-bot/internal/config"
)

// HandlerTimeout bounds the work done for a single gateway event.
const HandlerTimeout = 30 * time.Second

// Intents the bot needs: guild and voice state caches plus message text.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentMessageContent

// Bot owns the gateway session.
type Bot struct {
	session *discordgo.Session
	roster  *StateRoster
	handler HandlerFunc
	ctx     context.Context
}

// NewSession opens nothing yet; it prepares a session with state tracking
// for voice and members.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = Intents
	session.StateEnabled = true
	session.State.TrackVoice = true
	session.State.TrackMembers = true
	return session, nil
}

// New creates a Bot that routes gateway events through the standard
// middleware into router.
func New(session *discordgo.Session, cfg *config.Config, router *Router) *Bot {
	b := &Bot{
		session: session,
		roster:  NewStateRoster(session.State),
		handler: Chain(router.Handle,
			RecoveryMiddleware(),
			WhitelistMiddleware(cfg),
			LoggingMiddleware(),
		),
		ctx: context.Background(),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onVoiceStateUpdate)

	return b
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Info().Msg("Discord gateway connected")

	<-ctx.Done()

	log.Info().Msg("Closing Discord gateway...")
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Discord session ready")
}

func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	guildID := ParseSnowflake(g.ID)
	b.dispatch(GuildEvent{GuildID: guildID, Members: b.roster.connected(guildID)})
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	b.dispatch(messageEvent(m.Message))
}

func (b *Bot) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil {
		return
	}
	b.dispatch(voiceEvent(v, b.roster.isBot(v.GuildID, v.VoiceState)))
}

func (b *Bot) dispatch(ev Event) {
	ctx, cancel := context.WithTimeout(b.ctx, HandlerTimeout)
	defer cancel()

	if err := b.handler(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event", ev.Kind()).
			Int64("guild_id", ev.Guild()).
			Int64("user_id", ev.User()).
			Msg("Event handling failed")
	}
}

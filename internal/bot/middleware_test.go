package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"points-game-bot/internal/config"
	"points-game-bot/internal/service"
)

func message(guildID int64) MessageEvent {
	return MessageEvent{Message: service.Message{GuildID: guildID, ChannelID: 2, UserID: 3, Content: "m.slot 100"}}
}

// TestWhitelistEnforcementProperty: an event reaches the handler iff its
// guild is whitelisted, the whitelist is empty, or it has no guild.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		guilds := rapid.SliceOfN(rapid.Int64Range(1, 1_000_000_000), 0, 10).Draw(t, "guilds")
		guildID := rapid.Int64Range(0, 1_000_000_000).Draw(t, "guildID")
		cfg := &config.Config{Discord: config.DiscordConfig{Guilds: guilds}}

		called := false
		h := WhitelistMiddleware(cfg)(func(context.Context, Event) error {
			called = true
			return nil
		})
		if err := h(context.Background(), message(guildID)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := guildID == 0 || cfg.IsGuildAllowed(guildID)
		if called != want {
			t.Fatalf("guild %d with whitelist %v: called=%v, want %v", guildID, guilds, called, want)
		}
	})
}

func TestWhitelistAppliesToVoice(t *testing.T) {
	cfg := &config.Config{Discord: config.DiscordConfig{Guilds: []int64{7}}}
	var seen []string
	h := WhitelistMiddleware(cfg)(func(_ context.Context, ev Event) error {
		seen = append(seen, ev.Kind())
		return nil
	})

	ev := VoiceEvent{}
	ev.Member.GuildID = 8
	require.NoError(t, h(context.Background(), ev))
	ev.Member.GuildID = 7
	require.NoError(t, h(context.Background(), ev))
	require.NoError(t, h(context.Background(), GuildEvent{GuildID: 9}))

	assert.Equal(t, []string{"voice"}, seen)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware()(func(context.Context, Event) error {
		panic("boom")
	})
	err := h(context.Background(), message(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in message handler: boom")

	sentinel := errors.New("ledger down")
	h = RecoveryMiddleware()(func(context.Context, Event) error { return sentinel })
	assert.ErrorIs(t, h(context.Background(), message(1)), sentinel)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, ev Event) error {
				order = append(order, name)
				return next(ctx, ev)
			}
		}
	}
	h := Chain(func(context.Context, Event) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"), LoggingMiddleware())

	require.NoError(t, h(context.Background(), message(1)))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

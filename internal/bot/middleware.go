package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"points-game-bot/internal/config"
)

// HandlerFunc handles one normalized event.
type HandlerFunc func(ctx context.Context, ev Event) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Chain wraps h so that the first middleware runs outermost.
func Chain(h HandlerFunc, mws ...MiddlewareFunc) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WhitelistMiddleware drops events from guilds outside the whitelist.
// Direct messages carry no guild and pass through; the engine ignores them.
func WhitelistMiddleware(cfg *config.Config) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, ev Event) error {
			if g := ev.Guild(); g != 0 && !cfg.IsGuildAllowed(g) {
				log.Debug().
					Int64("guild_id", g).
					Str("event", ev.Kind()).
					Msg("Ignoring event from non-whitelisted guild")
				return nil
			}
			return next(ctx, ev)
		}
	}
}

// LoggingMiddleware logs every incoming event.
func LoggingMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, ev Event) error {
			logEvent := log.Debug().
				Str("event", ev.Kind()).
				Int64("guild_id", ev.Guild()).
				Int64("user_id", ev.User())
			switch e := ev.(type) {
			case MessageEvent:
				logEvent = logEvent.Int64("channel_id", e.ChannelID).Str("text", e.Content)
			case VoiceEvent:
				logEvent = logEvent.
					Int64("before_channel_id", e.Before.ChannelID).
					Int64("after_channel_id", e.After.ChannelID)
			}
			logEvent.Msg("Received event")

			return next(ctx, ev)
		}
	}
}

// RecoveryMiddleware turns a handler panic into an error.
func RecoveryMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, ev Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event", ev.Kind()).
						Msg("Recovered from panic in handler")
					err = fmt.Errorf("panic in %s handler: %v", ev.Kind(), r)
				}
			}()
			return next(ctx, ev)
		}
	}
}

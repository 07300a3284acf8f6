package bot

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"

	"points-game-bot/internal/presence"
	"points-game-bot/internal/service"
)

// Core is the interaction engine the gateway feeds.
type Core interface {
	HandleMessage(ctx context.Context, msg service.Message) (bool, error)
	HandleVoiceTransition(ctx context.Context, m presence.Member, before, after presence.VoiceState, now time.Time) error
	Reconcile(ctx context.Context, guildID, userID int64, now time.Time) error
}

// Router hands normalized events to the core.
type Router struct {
	core  Core
	clock quartz.Clock
}

// NewRouter creates a Router.
func NewRouter(core Core, clock quartz.Clock) *Router {
	return &Router{core: core, clock: clock}
}

// Handle is a HandlerFunc.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case MessageEvent:
		_, err := r.core.HandleMessage(ctx, e.Message)
		return err
	case VoiceEvent:
		return r.core.HandleVoiceTransition(ctx, e.Member, e.Before, e.After, r.clock.Now())
	case GuildEvent:
		now := r.clock.Now()
		var errs []error
		for _, m := range e.Members {
			if m.Bot {
				continue
			}
			errs = append(errs, r.core.Reconcile(ctx, e.GuildID, m.UserID, now))
		}
		return errors.Join(errs...)
	}
	return nil
}

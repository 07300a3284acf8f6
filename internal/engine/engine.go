// Package engine wires the game dispatcher, the message awarder and the
// presence engine behind the three entry points the gateway calls.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"points-game-bot/internal/presence"
	"points-game-bot/internal/service"
)

// Engine is the interaction core.
type Engine struct {
	dispatcher    *service.Dispatcher
	awarder       *service.MessageAwarder
	presence      *presence.Engine
	clock         quartz.Clock
	sweepInterval time.Duration
}

// New creates an Engine. A nil awarder disables message points.
func New(
	dispatcher *service.Dispatcher,
	awarder *service.MessageAwarder,
	presence *presence.Engine,
	clock quartz.Clock,
	sweepInterval time.Duration,
) *Engine {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Engine{
		dispatcher:    dispatcher,
		awarder:       awarder,
		presence:      presence,
		clock:         clock,
		sweepInterval: sweepInterval,
	}
}

// HandleMessage credits message points and then routes the message to the
// game dispatcher. It reports whether the dispatcher consumed the message.
func (e *Engine) HandleMessage(ctx context.Context, msg service.Message) (bool, error) {
	var awardErr error
	if e.awarder != nil {
		if awardErr = e.awarder.Award(ctx, msg); awardErr != nil {
			log.Error().Err(awardErr).Int64("user_id", msg.UserID).Msg("Message award failed")
		}
	}
	handled, err := e.dispatcher.HandleMessage(ctx, msg)
	return handled, errors.Join(awardErr, err)
}

// HandleVoiceTransition applies a voice state change observed at now.
func (e *Engine) HandleVoiceTransition(ctx context.Context, m presence.Member, before, after presence.VoiceState, now time.Time) error {
	return e.presence.HandleTransition(ctx, m, before, after, now)
}

// Reconcile re-reads one member's voice state from the roster, for members
// whose transitions were missed while the gateway was away.
func (e *Engine) Reconcile(ctx context.Context, guildID, userID int64, now time.Time) error {
	return e.presence.Reconcile(ctx, guildID, userID, now)
}

// SweepTick reconciles voice sessions and expires idle game sessions.
func (e *Engine) SweepTick(ctx context.Context, now time.Time) error {
	return errors.Join(
		e.presence.Sweep(ctx, now),
		e.dispatcher.ExpireIdle(ctx, now),
	)
}

// Run calls SweepTick every sweep interval until ctx is done. Tick failures
// are logged; they never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().Dur("interval", e.sweepInterval).Msg("Sweep loop started")
	w := e.clock.TickerFunc(ctx, e.sweepInterval, func() error {
		if err := e.SweepTick(ctx, e.clock.Now()); err != nil {
			log.Error().Err(err).Msg("Sweep tick failed")
		}
		return nil
	}, "engine", "sweep")

	err := w.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Package game defines the session-based game contract, the session store
// and the registry shared by every game variant.
package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/random"
)

// Game is one registered game variant.
//
// Start and HandleInput return the session that should stay live, or nil when
// the interaction is finished. A user error (see IsUserError) leaves the
// returned session in place so the user can retry.
type Game interface {
	// Key is the canonical command, e.g. "slot".
	Key() string
	// Aliases lists every command that starts the game, Key included.
	Aliases() []string
	// Name is the display name.
	Name() string
	// Start handles the first command and its arguments.
	Start(ctx context.Context, env *Env, args []string) (Session, error)
	// HandleInput handles continuation text for a live session.
	HandleInput(ctx context.Context, env *Env, text string, s Session) (Session, error)
	// Timeout runs after an idle session was removed from the store.
	Timeout(ctx context.Context, env *Env, s Session) error
}

// Messenger delivers text to a channel.
type Messenger interface {
	Send(ctx context.Context, channelID int64, text string) error
}

// Rules are the tunables every game reads.
type Rules struct {
	MinStake     int64
	CancelWords  []string
	InputTimeout time.Duration
	GuessTimeout time.Duration
	DuelTimeout  time.Duration
}

// DefaultRules returns the stock rules.
func DefaultRules() Rules {
	return Rules{
		MinStake:     100,
		CancelWords:  []string{"quit", "exit", "中止", "q"},
		InputTimeout: 120 * time.Second,
		GuessTimeout: 120 * time.Second,
		DuelTimeout:  120 * time.Second,
	}
}

// IsCancel reports whether text is one of the cancel words, ignoring case
// and surrounding space.
func (r Rules) IsCancel(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, w := range r.CancelWords {
		if text == strings.ToLower(w) {
			return true
		}
	}
	return false
}

// TimeoutFor returns the idle window for a session.
func (r Rules) TimeoutFor(s Session) time.Duration {
	switch s.(type) {
	case *GuessSession:
		return r.GuessTimeout
	case *DuelSession:
		return r.DuelTimeout
	default:
		return r.InputTimeout
	}
}

// Outcome is one settled round.
type Outcome struct {
	Game       string
	Stake      int64
	Multiplier float64
	Payout     int64
	Net        int64
	Detail     string
}

// Env is the per-interaction context handed to a game.
type Env struct {
	GuildID   int64
	ChannelID int64
	UserID    int64
	Now       time.Time

	Ledger    ledger.Ledger
	Rand      random.Source
	Messenger Messenger
	Rules     Rules

	// Outcomes collects the rounds settled during this interaction.
	Outcomes []Outcome
}

// Say sends a message to the interaction's channel. Delivery failures are
// logged and dropped; they never undo ledger effects.
func (e *Env) Say(ctx context.Context, format string, args ...any) {
	if e.Messenger == nil {
		return
	}
	text := fmt.Sprintf(format, args...)
	if err := e.Messenger.Send(ctx, e.ChannelID, text); err != nil {
		log.Warn().Err(err).
			Int64("guild_id", e.GuildID).
			Int64("channel_id", e.ChannelID).
			Int64("user_id", e.UserID).
			Msg("Failed to deliver message")
	}
}

// Record appends a settled outcome.
func (e *Env) Record(o Outcome) {
	e.Outcomes = append(e.Outcomes, o)
}

// Package presence converts voice-channel presence into points.
//
// Each tracked user has a Session holding carry: eligible presence time not
// yet converted into an award. Transition events and periodic sweeps both
// funnel into the same observation step, which adds the time elapsed since
// the last observation to carry (only if the user was accruing), credits
// whole award intervals and keeps the remainder.
package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/lock"
)

// VoiceState is a member's voice connection as the platform reports it.
// ChannelID is zero when the member is not connected.
type VoiceState struct {
	ChannelID int64
	Mute      bool
	SelfMute  bool
}

// Connected reports whether the state is in a channel.
func (s VoiceState) Connected() bool { return s.ChannelID != 0 }

// Member identifies a guild member.
type Member struct {
	GuildID int64
	UserID  int64
	Bot     bool
}

// Roster is the platform's current view of voice channels.
type Roster interface {
	// VoiceState returns the member's state. ok is false when the guild or
	// member is unknown.
	VoiceState(guildID, userID int64) (state VoiceState, ok bool)
	// ChannelMembers lists the members connected to a channel.
	ChannelMembers(guildID, channelID int64) []Member
}

// Config tunes the accrual.
type Config struct {
	AwardInterval  time.Duration
	PointsPerAward int64
}

// DefaultConfig awards one point per seven eligible minutes.
func DefaultConfig() Config {
	return Config{AwardInterval: 7 * time.Minute, PointsPerAward: 1}
}

// Session is one user's accrual record.
type Session struct {
	GuildID   int64
	ChannelID int64
	LastSeen  time.Time
	Carry     time.Duration
	Accruing  bool
}

// Engine tracks voice sessions. Updates to one user's session are
// serialized; different users proceed independently.
type Engine struct {
	ledger ledger.Ledger
	roster Roster
	cfg    Config
	locks  *lock.UserLock

	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewEngine creates an Engine.
func NewEngine(l ledger.Ledger, roster Roster, cfg Config) *Engine {
	if cfg.AwardInterval <= 0 {
		cfg.AwardInterval = DefaultConfig().AwardInterval
	}
	if cfg.PointsPerAward <= 0 {
		cfg.PointsPerAward = DefaultConfig().PointsPerAward
	}
	return &Engine{
		ledger:   l,
		roster:   roster,
		cfg:      cfg,
		locks:    lock.NewUserLock(),
		sessions: make(map[int64]*Session),
	}
}

// HandleTransition applies a member's voice state change, then re-evaluates
// every other member of the channels the member left or entered, since their
// eligibility may have changed with the head count.
func (e *Engine) HandleTransition(ctx context.Context, m Member, before, after VoiceState, now time.Time) error {
	if m.Bot {
		return nil
	}

	errs := []error{e.withUser(ctx, m.UserID, func() error {
		return e.apply(ctx, m.GuildID, m.UserID, after, true, now)
	})}

	channels := make([]int64, 0, 2)
	if before.Connected() {
		channels = append(channels, before.ChannelID)
	}
	if after.Connected() && after.ChannelID != before.ChannelID {
		channels = append(channels, after.ChannelID)
	}
	for _, ch := range channels {
		for _, other := range e.roster.ChannelMembers(m.GuildID, ch) {
			if other.Bot || other.UserID == m.UserID {
				continue
			}
			errs = append(errs, e.Reconcile(ctx, m.GuildID, other.UserID, now))
		}
	}
	return errors.Join(errs...)
}

// Reconcile re-derives a user's session from the roster.
func (e *Engine) Reconcile(ctx context.Context, guildID, userID int64, now time.Time) error {
	return e.withUser(ctx, userID, func() error {
		state, ok := e.roster.VoiceState(guildID, userID)
		return e.apply(ctx, guildID, userID, state, ok, now)
	})
}

// Sweep reconciles every tracked user against the roster. It recovers from
// transitions the process never saw. Per-user failures do not stop the sweep.
func (e *Engine) Sweep(ctx context.Context, now time.Time) error {
	var errs []error
	for userID, guildID := range e.tracked() {
		if err := e.Reconcile(ctx, guildID, userID, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns a copy of the user's session. It takes the user's lock,
// since transitions mutate the session under that lock alone.
func (e *Engine) Snapshot(userID int64) (Session, bool) {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of tracked users.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

func (e *Engine) withUser(ctx context.Context, userID int64, fn func() error) error {
	return e.locks.WithLockContext(ctx, userID, fn)
}

// apply moves a user's session to state. known is false when the member is
// gone from the roster, which is handled like a disconnect. Callers hold the
// user's lock.
func (e *Engine) apply(ctx context.Context, guildID, userID int64, state VoiceState, known bool, now time.Time) error {
	s := e.get(userID)
	if s != nil && s.GuildID != guildID {
		if err := e.leave(ctx, userID, s, now); err != nil {
			return err
		}
		s = nil
	}

	if !known || !state.Connected() {
		if s == nil {
			return nil
		}
		return e.leave(ctx, userID, s, now)
	}

	eligible := e.eligible(guildID, userID, state)
	if s == nil {
		e.put(userID, &Session{
			GuildID:   guildID,
			ChannelID: state.ChannelID,
			LastSeen:  now,
			Accruing:  eligible,
		})
		log.Debug().Int64("guild_id", guildID).Int64("user_id", userID).
			Int64("channel_id", state.ChannelID).Bool("accruing", eligible).
			Msg("Voice session started")
		return nil
	}
	s.ChannelID = state.ChannelID
	return e.observe(ctx, userID, s, now, eligible)
}

// leave flushes a session with accrual stopped and drops it. A failed final
// credit keeps the session so the next sweep retries it.
func (e *Engine) leave(ctx context.Context, userID int64, s *Session, now time.Time) error {
	s.ChannelID = 0
	if err := e.observe(ctx, userID, s, now, false); err != nil {
		return err
	}
	e.remove(userID)
	log.Debug().Int64("guild_id", s.GuildID).Int64("user_id", userID).
		Dur("carry", s.Carry).Msg("Voice session ended")
	return nil
}

// observe folds the time since the last observation into carry, credits
// whole intervals and sets the accruing flag for the next interval. Carry is
// reduced only after the ledger accepted the credit.
func (e *Engine) observe(ctx context.Context, userID int64, s *Session, now time.Time, accruing bool) error {
	if elapsed := now.Sub(s.LastSeen); elapsed > 0 && s.Accruing {
		s.Carry += elapsed
	}
	s.LastSeen = now
	s.Accruing = accruing

	n := int64(s.Carry / e.cfg.AwardInterval)
	if n == 0 {
		return nil
	}
	points := n * e.cfg.PointsPerAward
	if _, err := e.ledger.Add(ledger.WithReason(ctx, ledger.ReasonVoice), s.GuildID, userID, points); err != nil {
		log.Error().Err(err).Int64("guild_id", s.GuildID).Int64("user_id", userID).
			Int64("points", points).Msg("Voice award failed")
		return err
	}
	s.Carry -= time.Duration(n) * e.cfg.AwardInterval
	log.Info().Int64("guild_id", s.GuildID).Int64("user_id", userID).
		Int64("points", points).Dur("carry", s.Carry).Msg("Voice points awarded")
	return nil
}

// eligible: connected, unmuted and sharing the channel with another human.
func (e *Engine) eligible(guildID, userID int64, state VoiceState) bool {
	if !state.Connected() || state.Mute || state.SelfMute {
		return false
	}
	for _, m := range e.roster.ChannelMembers(guildID, state.ChannelID) {
		if !m.Bot && m.UserID != userID {
			return true
		}
	}
	return false
}

func (e *Engine) get(userID int64) *Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[userID]
}

func (e *Engine) put(userID int64, s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[userID] = s
}

func (e *Engine) remove(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, userID)
}

func (e *Engine) tracked() map[int64]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[int64]int64, len(e.sessions))
	for id, s := range e.sessions {
		out[id] = s.GuildID
	}
	return out
}

package game

import (
	"time"

	"github.com/google/uuid"
)

// Header is the state every session carries.
type Header struct {
	ID         string
	Game       string
	GuildID    int64
	ChannelID  int64
	StartedAt  time.Time
	LastActive time.Time
}

// NewHeader starts a header bound to the env's channel at env.Now.
func NewHeader(gameKey string, env *Env) Header {
	return Header{
		ID:         uuid.NewString(),
		Game:       gameKey,
		GuildID:    env.GuildID,
		ChannelID:  env.ChannelID,
		StartedAt:  env.Now,
		LastActive: env.Now,
	}
}

// Meta returns the session header.
func (h *Header) Meta() *Header { return h }

// Touch records activity at now.
func (h *Header) Touch(now time.Time) { h.LastActive = now }

// IdleFor returns how long the session has been idle at now.
func (h *Header) IdleFor(now time.Time) time.Duration { return now.Sub(h.LastActive) }

func (h *Header) sealed() {}

// Session is the in-progress state of one user's game. The set of
// implementations is closed: *InputSession, *GuessSession and *DuelSession.
type Session interface {
	Meta() *Header
	sealed()
}

// Stage names what an InputSession is still waiting for.
type Stage int

// Input stages.
const (
	AwaitingStake Stage = iota
	AwaitingChoice
	Ready
)

func (s Stage) String() string {
	switch s {
	case AwaitingStake:
		return "awaiting_stake"
	case AwaitingChoice:
		return "awaiting_choice"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// InputSession collects a stake and, for games that need one, a choice,
// one message at a time. Nothing has been debited while it exists.
type InputSession struct {
	Header
	needsChoice bool
	stake       int64
	hasStake    bool
	choice      string
	hasChoice   bool
}

// NewInputSession creates a session waiting for a stake (and a choice when
// needsChoice is set).
func NewInputSession(h Header, needsChoice bool) *InputSession {
	return &InputSession{Header: h, needsChoice: needsChoice}
}

// Stage derives the current stage from the collected fields.
func (s *InputSession) Stage() Stage {
	if !s.hasStake {
		return AwaitingStake
	}
	if s.needsChoice && !s.hasChoice {
		return AwaitingChoice
	}
	return Ready
}

// Stake returns the collected stake.
func (s *InputSession) Stake() (int64, bool) { return s.stake, s.hasStake }

// Choice returns the collected choice.
func (s *InputSession) Choice() (string, bool) { return s.choice, s.hasChoice }

// SetStake stores a stake that already passed validation and solvency checks.
func (s *InputSession) SetStake(v int64) {
	s.stake = v
	s.hasStake = true
}

// SetChoice stores a parsed choice.
func (s *InputSession) SetChoice(c string) {
	s.choice = c
	s.hasChoice = true
}

// GuessSession is a running hit & blow game. The stake is already debited.
type GuessSession struct {
	Header
	Stake        int64
	Target       string
	AttemptsLeft int
}

// DuelSession is a running rock-paper-scissors game that tied at least once
// or is waiting for a hand. The stake is already debited.
type DuelSession struct {
	Header
	Stake int64
	Ties  int
}

// StakeAtRisk returns the debited stake a session would forfeit, if any.
func StakeAtRisk(s Session) (int64, bool) {
	switch v := s.(type) {
	case *GuessSession:
		return v.Stake, true
	case *DuelSession:
		return v.Stake, true
	default:
		return 0, false
	}
}

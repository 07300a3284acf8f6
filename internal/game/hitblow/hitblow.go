// Package hitblow implements the three-digit hit & blow guessing game.
package hitblow

import (
	"context"
	"fmt"
	"strings"

	"points-game-bot/internal/game"
	"points-game-bot/internal/pkg/random"
)

// Key is the canonical command.
const Key = "hitblow"

// Game parameters.
const (
	Digits     = 3
	MaxTries   = 10
	MaxLoss    = 1.0
	Multiplier = 3.0
)

var alphabet = []byte("0123456789")

// NewTarget draws Digits distinct digits.
func NewTarget(src random.Source) string {
	return string(random.Sample(src, alphabet, Digits))
}

// ParseGuess normalizes a guess and checks it is Digits distinct digits.
func ParseGuess(text string) (string, error) {
	g := game.NormalizeDigits(strings.TrimSpace(text))
	if len(g) != Digits {
		return "", fmt.Errorf("%w: enter a %d-digit number", game.ErrInvalidGuess, Digits)
	}
	seen := make(map[rune]bool, Digits)
	for _, r := range g {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: enter a %d-digit number", game.ErrInvalidGuess, Digits)
		}
		if seen[r] {
			return "", fmt.Errorf("%w: digits must not repeat", game.ErrInvalidGuess)
		}
		seen[r] = true
	}
	return g, nil
}

// Score counts digits in the right place (hits) and digits present elsewhere
// in the target (blows).
func Score(guess, target string) (hits, blows int) {
	for i := 0; i < len(guess) && i < len(target); i++ {
		switch {
		case guess[i] == target[i]:
			hits++
		case strings.IndexByte(target, guess[i]) >= 0:
			blows++
		}
	}
	return hits, blows
}

// Game is hit & blow.
type Game struct{}

// New creates the hit & blow game.
func New() *Game { return &Game{} }

// Key implements game.Game.
func (g *Game) Key() string { return Key }

// Aliases implements game.Game.
func (g *Game) Aliases() []string { return []string{Key, "hit"} }

// Name implements game.Game.
func (g *Game) Name() string { return "Hit & Blow" }

// Start implements game.Game.
func (g *Game) Start(ctx context.Context, env *game.Env, args []string) (game.Session, error) {
	stake, ok := game.ParseStake(args)
	if !ok {
		env.Say(ctx, "🔢 Hit & Blow! How many points do you want to bet?")
		return game.NewInputSession(game.NewHeader(Key, env), false), nil
	}
	return g.begin(ctx, env, stake)
}

// HandleInput implements game.Game.
func (g *Game) HandleInput(ctx context.Context, env *game.Env, text string, s game.Session) (game.Session, error) {
	switch sess := s.(type) {
	case *game.InputSession:
		if sess.Stage() == game.AwaitingStake {
			ready, err := game.CollectStake(ctx, env, text, sess, MaxLoss)
			if err != nil {
				return sess, err
			}
			if !ready {
				env.Say(ctx, "Enter the points to bet.")
				return sess, nil
			}
		}
		stake, _ := sess.Stake()
		return g.begin(ctx, env, stake)
	case *game.GuessSession:
		return g.guess(ctx, env, text, sess)
	default:
		return s, nil
	}
}

// Timeout implements game.Game.
func (g *Game) Timeout(ctx context.Context, env *game.Env, s game.Session) error {
	game.ExpireNotice(ctx, env, g.Name(), s)
	return nil
}

func (g *Game) begin(ctx context.Context, env *game.Env, stake int64) (game.Session, error) {
	if err := game.ValidateStake(stake, env.Rules); err != nil {
		return nil, err
	}
	if err := game.Debit(ctx, env, stake, MaxLoss); err != nil {
		return nil, err
	}

	sess := &game.GuessSession{
		Header:       game.NewHeader(Key, env),
		Stake:        stake,
		Target:       NewTarget(env.Rand),
		AttemptsLeft: MaxTries,
	}
	env.Say(ctx, "🔢 Guess the %d-digit number with no repeated digits. %d tries, send %s to give up.",
		Digits, MaxTries, strings.Join(env.Rules.CancelWords, "/"))
	return sess, nil
}

func (g *Game) guess(ctx context.Context, env *game.Env, text string, sess *game.GuessSession) (game.Session, error) {
	if env.Rules.IsCancel(text) {
		game.Forfeit(env, Key, sess.Stake, "cancelled")
		env.Say(ctx, "Hit & Blow cancelled. Your stake of %d points is forfeited.", sess.Stake)
		return nil, nil
	}

	guess, err := ParseGuess(text)
	if err != nil {
		return sess, err
	}

	sess.AttemptsLeft--
	hits, blows := Score(guess, sess.Target)
	if hits == Digits {
		o, err := game.Settle(ctx, env, Key, sess.Stake, Multiplier, sess.Target)
		if err != nil {
			return nil, err
		}
		env.Say(ctx, "🎉 Correct! %s\n%s", sess.Target, game.Describe(o))
		return nil, nil
	}
	if sess.AttemptsLeft <= 0 {
		game.Forfeit(env, Key, sess.Stake, "out of tries")
		env.Say(ctx, "Out of tries! The answer was %s. Your stake is forfeited.", sess.Target)
		return nil, nil
	}

	env.Say(ctx, "HIT: %d / BLOW: %d / %d tries left", hits, blows, sess.AttemptsLeft)
	return sess, nil
}

// Package janken implements rock-paper-scissors against the bot. A draw keeps
// the debited stake in play for a rematch.
package janken

import (
	"context"
	"strings"

	"points-game-bot/internal/game"
	"points-game-bot/internal/pkg/random"
)

// Key is the canonical command.
const Key = "janken"

// Game parameters.
const (
	MaxLoss       = 1.0
	WinMultiplier = 2.0
)

// Hands.
const (
	Rock     = "rock"
	Scissors = "scissors"
	Paper    = "paper"
)

// Hands is the opponent's draw pool.
var Hands = []string{Rock, Scissors, Paper}

var labels = map[string]string{
	Rock:     "グー",
	Scissors: "チョキ",
	Paper:    "パー",
}

var aliases = map[string][]string{
	Rock:     {"グー", "ぐー", "g", "rock", "r", "✊", "gu-"},
	Scissors: {"チョキ", "ちょき", "s", "scissors", "✌", "c", "choki"},
	Paper:    {"パー", "ぱー", "p", "paper", "✋", "pa-"},
}

// ParseHand resolves any hand alias, ignoring case.
func ParseHand(text string) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	for hand, names := range aliases {
		for _, n := range names {
			if text == strings.ToLower(n) {
				return hand, true
			}
		}
	}
	return "", false
}

// Label returns the display name of a hand.
func Label(hand string) string {
	if l, ok := labels[hand]; ok {
		return l
	}
	return hand
}

// Result of one throw.
type Result int

// Results.
const (
	Draw Result = iota
	Win
	Lose
)

var beats = map[string]string{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Judge scores player against opponent.
func Judge(player, opponent string) Result {
	switch {
	case player == opponent:
		return Draw
	case beats[player] == opponent:
		return Win
	default:
		return Lose
	}
}

// Game is rock-paper-scissors.
type Game struct{}

// New creates the janken game.
func New() *Game { return &Game{} }

// Key implements game.Game.
func (g *Game) Key() string { return Key }

// Aliases implements game.Game.
func (g *Game) Aliases() []string { return []string{Key, "rps"} }

// Name implements game.Game.
func (g *Game) Name() string { return "Janken" }

// Start implements game.Game.
func (g *Game) Start(ctx context.Context, env *game.Env, args []string) (game.Session, error) {
	a := game.ParseArgs(args, ParseHand)
	if !a.HasStake {
		in := game.NewInputSession(game.NewHeader(Key, env), true)
		if a.HasChoice {
			in.SetChoice(a.Choice)
		}
		env.Say(ctx, "✊ Janken! How many points do you want to bet?")
		return in, nil
	}

	if err := game.ValidateStake(a.Stake, env.Rules); err != nil {
		return nil, err
	}
	if err := game.CheckSolvency(ctx, env, a.Stake, MaxLoss); err != nil {
		return nil, err
	}
	if !a.HasChoice {
		in := game.NewInputSession(game.NewHeader(Key, env), true)
		in.SetStake(a.Stake)
		env.Say(ctx, "✊ Janken! Rock, scissors or paper?")
		return in, nil
	}
	return g.begin(ctx, env, a.Stake, a.Choice)
}

// HandleInput implements game.Game.
func (g *Game) HandleInput(ctx context.Context, env *game.Env, text string, s game.Session) (game.Session, error) {
	switch sess := s.(type) {
	case *game.InputSession:
		if err := game.CollectArgs(ctx, env, text, sess, MaxLoss, ParseHand); err != nil {
			return sess, err
		}
		switch sess.Stage() {
		case game.AwaitingStake:
			env.Say(ctx, "Enter the points to bet.")
			return sess, nil
		case game.AwaitingChoice:
			env.Say(ctx, "Choose rock, scissors or paper.")
			return sess, nil
		}
		stake, _ := sess.Stake()
		hand, _ := sess.Choice()
		return g.begin(ctx, env, stake, hand)
	case *game.DuelSession:
		if env.Rules.IsCancel(text) {
			game.Forfeit(env, Key, sess.Stake, "cancelled")
			env.Say(ctx, "Janken cancelled. Your stake of %d points is forfeited.", sess.Stake)
			return nil, nil
		}
		hand, ok := ParseHand(text)
		if !ok {
			return sess, game.ErrInvalidChoice
		}
		return g.throw(ctx, env, sess, hand)
	default:
		return s, nil
	}
}

// Timeout implements game.Game.
func (g *Game) Timeout(ctx context.Context, env *game.Env, s game.Session) error {
	game.ExpireNotice(ctx, env, g.Name(), s)
	return nil
}

func (g *Game) begin(ctx context.Context, env *game.Env, stake int64, hand string) (game.Session, error) {
	if err := game.Debit(ctx, env, stake, MaxLoss); err != nil {
		return nil, err
	}
	sess := &game.DuelSession{Header: game.NewHeader(Key, env), Stake: stake}
	return g.throw(ctx, env, sess, hand)
}

// throw plays one hand. The stake was debited when the duel began and is
// never debited again.
func (g *Game) throw(ctx context.Context, env *game.Env, sess *game.DuelSession, hand string) (game.Session, error) {
	opponent := random.Choice(env.Rand, Hands)
	result := Judge(hand, opponent)
	if result == Draw {
		sess.Ties++
		env.Say(ctx, "%s vs %s: draw! Go again (rock/scissors/paper).", Label(hand), Label(opponent))
		return sess, nil
	}

	m, verdict := 0.0, "you lose"
	if result == Win {
		m, verdict = WinMultiplier, "you win"
	}
	o, err := game.Settle(ctx, env, Key, sess.Stake, m, hand+" vs "+opponent)
	if err != nil {
		return nil, err
	}
	env.Say(ctx, "%s vs %s: %s\n%s", Label(hand), Label(opponent), verdict, game.Describe(o))
	return nil, nil
}

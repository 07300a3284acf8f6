// Package slot implements the three-reel slot machine.
package slot

import (
	"context"

	"points-game-bot/internal/game"
	"points-game-bot/internal/pkg/random"
)

// Key is the command that starts the game.
const Key = "slot"

// MaxLoss is the worst-case loss per staked point.
const MaxLoss = 1.0

// Payout multipliers.
const (
	RareTripleMultiplier = 4.5
	TripleMultiplier     = 2.5
	PairMultiplier       = 1.3
)

// Symbols are the reel faces. Every reel draws from the same set.
var Symbols = []string{"🍒", "🍋", "🍇", "🔔", "⭐", "💎"}

// rare symbols pay RareTripleMultiplier on a triple.
var rare = map[string]bool{"💎": true}

// Reels is one spin result.
type Reels [3]string

// Spin draws three independent reels.
func Spin(src random.Source) Reels {
	var r Reels
	for i := range r {
		r[i] = random.Choice(src, Symbols)
	}
	return r
}

// Multiplier scores a spin.
func Multiplier(r Reels) float64 {
	switch {
	case r[0] == r[1] && r[1] == r[2]:
		if rare[r[0]] {
			return RareTripleMultiplier
		}
		return TripleMultiplier
	case r[0] == r[1] || r[1] == r[2] || r[0] == r[2]:
		return PairMultiplier
	default:
		return 0
	}
}

// Game is the slot machine.
type Game struct{}

// New creates the slot game.
func New() *Game { return &Game{} }

// Key implements game.Game.
func (g *Game) Key() string { return Key }

// Aliases implements game.Game.
func (g *Game) Aliases() []string { return []string{Key} }

// Name implements game.Game.
func (g *Game) Name() string { return "Slot" }

// Start implements game.Game.
func (g *Game) Start(ctx context.Context, env *game.Env, args []string) (game.Session, error) {
	stake, ok := game.ParseStake(args)
	if !ok {
		env.Say(ctx, "🎰 Slot machine! How many points do you want to bet?")
		return game.NewInputSession(game.NewHeader(Key, env), false), nil
	}
	return nil, g.resolve(ctx, env, stake)
}

// HandleInput implements game.Game.
func (g *Game) HandleInput(ctx context.Context, env *game.Env, text string, s game.Session) (game.Session, error) {
	in, ok := s.(*game.InputSession)
	if !ok {
		return s, nil
	}
	if in.Stage() == game.AwaitingStake {
		ready, err := game.CollectStake(ctx, env, text, in, MaxLoss)
		if err != nil {
			return in, err
		}
		if !ready {
			env.Say(ctx, "Enter the points to bet.")
			return in, nil
		}
	}
	stake, _ := in.Stake()
	return nil, g.resolve(ctx, env, stake)
}

// Timeout implements game.Game.
func (g *Game) Timeout(ctx context.Context, env *game.Env, s game.Session) error {
	game.ExpireNotice(ctx, env, g.Name(), s)
	return nil
}

func (g *Game) resolve(ctx context.Context, env *game.Env, stake int64) error {
	if err := game.ValidateStake(stake, env.Rules); err != nil {
		return err
	}
	if err := game.Debit(ctx, env, stake, MaxLoss); err != nil {
		return err
	}

	reels := Spin(env.Rand)
	o, err := game.Settle(ctx, env, Key, stake, Multiplier(reels), reels[0]+reels[1]+reels[2])
	if err != nil {
		return err
	}
	env.Say(ctx, "🎰 | %s | %s | %s |\n%s", reels[0], reels[1], reels[2], game.Describe(o))
	return nil
}

// Package omikuji implements the fortune draw. Its worst fortune takes more
// than the stake, so it reserves 1.5x the stake before playing.
package omikuji

import (
	"context"

	"points-game-bot/internal/game"
	"points-game-bot/internal/pkg/random"
)

// Key is the command that starts the game.
const Key = "omikuji"

// MaxLoss is the worst-case loss per staked point: the stake plus the
// 0.5x clawback of 大凶.
const MaxLoss = 1.5

// Fortune is one drawable outcome.
type Fortune struct {
	Name       string
	Multiplier float64
	Weight     float64
}

// Fortunes are the outcomes in draw order.
var Fortunes = []Fortune{
	{"大吉", 2.0, 5},
	{"中吉", 1.7, 10},
	{"小吉", 1.4, 20},
	{"末吉", 1.0, 25},
	{"凶", 0.0, 30},
	{"大凶", -0.5, 10},
}

func weights() []float64 {
	w := make([]float64, len(Fortunes))
	for i, f := range Fortunes {
		w[i] = f.Weight
	}
	return w
}

// Draw picks one fortune by weight.
func Draw(src random.Source) Fortune {
	return random.WeightedChoice(src, Fortunes, weights())
}

// Game is the fortune draw.
type Game struct{}

// New creates the omikuji game.
func New() *Game { return &Game{} }

// Key implements game.Game.
func (g *Game) Key() string { return Key }

// Aliases implements game.Game.
func (g *Game) Aliases() []string { return []string{Key} }

// Name implements game.Game.
func (g *Game) Name() string { return "Omikuji" }

// Start implements game.Game.
func (g *Game) Start(ctx context.Context, env *game.Env, args []string) (game.Session, error) {
	stake, ok := game.ParseStake(args)
	if !ok {
		env.Say(ctx, "⛩ Omikuji! How many points do you want to bet?")
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

	f := Draw(env.Rand)
	o, err := game.Settle(ctx, env, Key, stake, f.Multiplier, f.Name)
	if err != nil {
		return err
	}
	env.Say(ctx, "⛩ Your fortune: %s\n%s", f.Name, game.Describe(o))
	return nil
}

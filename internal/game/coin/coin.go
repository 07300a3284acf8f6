// Package coin implements the coin toss.
package coin

import (
	"context"
	"strings"

	"points-game-bot/internal/game"
	"points-game-bot/internal/pkg/random"
)

// Key is the canonical command.
const Key = "coin"

// Game parameters.
const (
	MaxLoss    = 1.0
	Multiplier = 1.7
)

// Faces.
const (
	Heads = "heads"
	Tails = "tails"
)

// Faces is the toss pool.
var Faces = []string{Heads, Tails}

var labels = map[string]string{
	Heads: "表",
	Tails: "裏",
}

var aliases = map[string][]string{
	Heads: {"表", "おもて", "heads", "head", "h", "0", "true", "omote"},
	Tails: {"裏", "うら", "tails", "tail", "t", "1", "false", "ura"},
}

// ParseFace resolves any face alias, ignoring case.
func ParseFace(text string) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	for face, names := range aliases {
		for _, n := range names {
			if text == strings.ToLower(n) {
				return face, true
			}
		}
	}
	return "", false
}

// Label returns the display name of a face.
func Label(face string) string {
	if l, ok := labels[face]; ok {
		return l
	}
	return face
}

// Game is the coin toss.
type Game struct{}

// New creates the coin game.
func New() *Game { return &Game{} }

// Key implements game.Game.
func (g *Game) Key() string { return Key }

// Aliases implements game.Game.
func (g *Game) Aliases() []string { return []string{Key, "cointoss"} }

// Name implements game.Game.
func (g *Game) Name() string { return "Coin Toss" }

// Start implements game.Game.
func (g *Game) Start(ctx context.Context, env *game.Env, args []string) (game.Session, error) {
	a := game.ParseArgs(args, ParseFace)
	if a.HasStake {
		if err := game.ValidateStake(a.Stake, env.Rules); err != nil {
			return nil, err
		}
	}
	if a.HasStake && a.HasChoice {
		return nil, g.resolve(ctx, env, a.Stake, a.Choice)
	}

	if a.HasStake {
		if err := game.CheckSolvency(ctx, env, a.Stake, MaxLoss); err != nil {
			return nil, err
		}
	}
	in := game.NewInputSession(game.NewHeader(Key, env), true)
	if a.HasStake {
		in.SetStake(a.Stake)
	}
	if a.HasChoice {
		in.SetChoice(a.Choice)
	}
	env.Say(ctx, "🪙 Coin toss! Send your bet and heads or tails.")
	return in, nil
}

// HandleInput implements game.Game.
func (g *Game) HandleInput(ctx context.Context, env *game.Env, text string, s game.Session) (game.Session, error) {
	in, ok := s.(*game.InputSession)
	if !ok {
		return s, nil
	}
	if err := game.CollectArgs(ctx, env, text, in, MaxLoss, ParseFace); err != nil {
		return in, err
	}
	switch in.Stage() {
	case game.AwaitingStake:
		env.Say(ctx, "Enter the points to bet.")
		return in, nil
	case game.AwaitingChoice:
		env.Say(ctx, "Choose heads or tails.")
		return in, nil
	}
	stake, _ := in.Stake()
	face, _ := in.Choice()
	return nil, g.resolve(ctx, env, stake, face)
}

// Timeout implements game.Game.
func (g *Game) Timeout(ctx context.Context, env *game.Env, s game.Session) error {
	game.ExpireNotice(ctx, env, g.Name(), s)
	return nil
}

func (g *Game) resolve(ctx context.Context, env *game.Env, stake int64, call string) error {
	if err := game.Debit(ctx, env, stake, MaxLoss); err != nil {
		return err
	}

	result := random.Choice(env.Rand, Faces)
	m := 0.0
	if result == call {
		m = Multiplier
	}
	o, err := game.Settle(ctx, env, Key, stake, m, result)
	if err != nil {
		return err
	}
	env.Say(ctx, "🪙 %s (you called %s)\n%s", Label(result), Label(call), game.Describe(o))
	return nil
}

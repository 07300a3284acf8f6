package game

import (
	"context"
	"fmt"
)

// Describe renders the multiplier and net of an outcome.
func Describe(o Outcome) string {
	return fmt.Sprintf("multiplier x%.1f / net %+d points", o.Multiplier, o.Net)
}

// Forfeit records a debited stake that was lost without a resolution.
func Forfeit(env *Env, gameKey string, stake int64, detail string) Outcome {
	o := Outcome{Game: gameKey, Stake: stake, Net: -stake, Detail: detail}
	env.Record(o)
	return o
}

// ExpireNotice tells the user a session timed out and forfeits its stake when
// one was debited. Games call it from Timeout.
func ExpireNotice(ctx context.Context, env *Env, name string, s Session) {
	stake, ok := StakeAtRisk(s)
	if !ok {
		env.Say(ctx, "%s timed out waiting for input.", name)
		return
	}
	Forfeit(env, s.Meta().Game, stake, "timeout")
	env.Say(ctx, "%s timed out. Your stake of %d points is forfeited.", name, stake)
}

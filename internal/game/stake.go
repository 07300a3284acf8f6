package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"points-game-bot/internal/ledger"
)

// NormalizeDigits folds full-width digits to ASCII, so "１００" reads as
// "100". Every other rune is left alone; kana such as the long vowel mark in
// "グー" must survive for choice parsing.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < '０' || r > '９' {
			return r
		}
		if n, _ := utf8.DecodeRuneInString(string(width.LookupRune(r).Narrow())); n != utf8.RuneError {
			return n
		}
		return r
	}, s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseStake returns the first all-digit token of args.
func ParseStake(args []string) (int64, bool) {
	for _, a := range args {
		a = NormalizeDigits(strings.TrimSpace(a))
		if !isDigits(a) {
			continue
		}
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

// Args is a parsed command line carrying a stake and a choice.
type Args struct {
	Stake     int64
	HasStake  bool
	Choice    string
	HasChoice bool
}

// ParseArgs takes the first all-digit token as the stake and the first other
// token that parseChoice accepts as the choice.
func ParseArgs(args []string, parseChoice func(string) (string, bool)) Args {
	return parseArgs(args, parseChoice, true)
}

func parseArgs(args []string, parseChoice func(string) (string, bool), wantStake bool) Args {
	var out Args
	for _, a := range args {
		a = NormalizeDigits(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if wantStake && !out.HasStake && isDigits(a) {
			if v, err := strconv.ParseInt(a, 10, 64); err == nil {
				out.Stake, out.HasStake = v, true
				continue
			}
		}
		if !out.HasChoice {
			if c, ok := parseChoice(a); ok {
				out.Choice, out.HasChoice = c, true
			}
		}
	}
	return out
}

// ValidateStake checks the stake against the minimum.
func ValidateStake(stake int64, rules Rules) error {
	if stake <= 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidStake, stake)
	}
	if stake < rules.MinStake {
		return fmt.Errorf("%w (minimum %d)", ErrStakeTooLow, rules.MinStake)
	}
	return nil
}

// Reserve is the balance needed to cover the worst outcome of a stake.
func Reserve(stake int64, maxLoss float64) int64 {
	return int64(math.Ceil(float64(stake) * maxLoss))
}

// Payout is the amount credited for a stake at multiplier m. Halves round to
// the nearest even integer.
func Payout(stake int64, m float64) int64 {
	return int64(math.RoundToEven(float64(stake) * m))
}

// CheckSolvency fails with ErrInsufficientFunds when the user's balance does
// not cover Reserve(stake, maxLoss). A missing account counts as zero.
func CheckSolvency(ctx context.Context, env *Env, stake int64, maxLoss float64) error {
	balance, _, err := env.Ledger.Balance(ctx, env.GuildID, env.UserID)
	if err != nil {
		return err
	}
	if need := Reserve(stake, maxLoss); balance < need {
		return fmt.Errorf("%w (need %d, have %d)", ErrInsufficientFunds, need, balance)
	}
	return nil
}

// Debit withdraws the stake, re-checking solvency atomically in the ledger.
func Debit(ctx context.Context, env *Env, stake int64, maxLoss float64) error {
	need := Reserve(stake, maxLoss)
	_, err := env.Ledger.Withdraw(ledger.WithReason(ctx, ledger.ReasonStake), env.GuildID, env.UserID, stake, need)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return fmt.Errorf("%w (need %d)", ErrInsufficientFunds, need)
	}
	return err
}

// Settle credits the payout for a debited stake, records the outcome and
// returns it. A zero payout writes nothing to the ledger; a negative one
// takes the extra loss.
func Settle(ctx context.Context, env *Env, gameKey string, stake int64, m float64, detail string) (Outcome, error) {
	o := Outcome{
		Game:       gameKey,
		Stake:      stake,
		Multiplier: m,
		Payout:     Payout(stake, m),
		Detail:     detail,
	}
	o.Net = o.Payout - stake
	if o.Payout != 0 {
		if _, err := env.Ledger.Add(ledger.WithReason(ctx, ledger.ReasonPayout), env.GuildID, env.UserID, o.Payout); err != nil {
			return o, fmt.Errorf("settle %s payout: %w", gameKey, err)
		}
	}
	env.Record(o)
	return o, nil
}

// CollectStake feeds continuation text into a session waiting for a stake.
// ok is false when the text held no stake; the caller should keep the session.
func CollectStake(ctx context.Context, env *Env, text string, s *InputSession, maxLoss float64) (ok bool, err error) {
	stake, found := ParseStake(strings.Fields(text))
	if !found {
		return false, nil
	}
	if err := ValidateStake(stake, env.Rules); err != nil {
		return false, err
	}
	if err := CheckSolvency(ctx, env, stake, maxLoss); err != nil {
		return false, err
	}
	s.SetStake(stake)
	return true, nil
}

// CollectArgs feeds continuation text into a session that needs both a stake
// and a choice. Fields already collected are kept; a stake is stored only
// after it passes validation and the solvency check.
func CollectArgs(ctx context.Context, env *Env, text string, s *InputSession, maxLoss float64, parseChoice func(string) (string, bool)) error {
	_, staked := s.Stake()
	// Once staked, digit tokens are left for choice aliases such as coin's "0".
	a := parseArgs(strings.Fields(text), parseChoice, !staked)
	if !staked && a.HasStake {
		if err := ValidateStake(a.Stake, env.Rules); err != nil {
			return err
		}
		if err := CheckSolvency(ctx, env, a.Stake, maxLoss); err != nil {
			return err
		}
		s.SetStake(a.Stake)
	}
	if _, has := s.Choice(); !has && a.HasChoice {
		s.SetChoice(a.Choice)
	}
	return nil
}

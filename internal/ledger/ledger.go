// Package ledger defines the points ledger the engine talks to.
// The engine only depends on the Ledger interface; Postgres and in-memory
// implementations live in the repository package and in Memory.
package ledger

import (
	"context"
	"errors"

	"points-game-bot/internal/model"
)

// Ledger errors.
var (
	// ErrInsufficientFunds is returned by Withdraw when the balance does not cover the reserve.
	ErrInsufficientFunds = errors.New("insufficient points")
	// ErrInvalidAmount is returned when a mutation amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Ledger is a community-scoped points store. Every method is atomic with
// respect to the balance it reads.
type Ledger interface {
	// Balance returns the user's points. ok is false when the user has no
	// account in the community yet.
	Balance(ctx context.Context, guildID, userID int64) (points int64, ok bool, err error)

	// Add applies delta (which may be negative) and returns the new balance,
	// creating the account on first use.
	Add(ctx context.Context, guildID, userID, delta int64) (int64, error)

	// Transfer moves amount from one user to another. It returns false without
	// mutating anything when amount <= 0 or the sender cannot cover it.
	Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (bool, error)

	// Withdraw subtracts amount only if the balance is at least reserve,
	// returning the new balance. It fails with ErrInsufficientFunds and leaves
	// the balance untouched otherwise. reserve is normally >= amount; games
	// whose worst case loses more than the stake pass a larger reserve.
	Withdraw(ctx context.Context, guildID, userID, amount, reserve int64) (int64, error)
}

// Reason labels why the points moved. Journaling ledgers record it.
type Reason string

// Reasons used by the engine.
const (
	ReasonUnknown  Reason = model.KindUnknown
	ReasonStake    Reason = model.KindStake
	ReasonPayout   Reason = model.KindPayout
	ReasonVoice    Reason = model.KindVoice
	ReasonMessage  Reason = model.KindMessage
	ReasonTransfer Reason = model.KindTransfer
)

type reasonKey struct{}

// WithReason returns a context that tags ledger mutations with r.
func WithReason(ctx context.Context, r Reason) context.Context {
	return context.WithValue(ctx, reasonKey{}, r)
}

// ReasonFrom returns the reason attached by WithReason, or ReasonUnknown.
func ReasonFrom(ctx context.Context) Reason {
	if r, ok := ctx.Value(reasonKey{}).(Reason); ok {
		return r
	}
	return ReasonUnknown
}

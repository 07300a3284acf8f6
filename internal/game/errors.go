package game

import (
	"errors"
	"fmt"

	"points-game-bot/internal/ledger"
)

// ErrValidation is the root of every malformed-input error. Sessions survive
// validation errors so the user can retry.
var ErrValidation = errors.New("invalid input")

// Validation errors.
var (
	ErrInvalidStake  = fmt.Errorf("%w: stake must be a positive whole number", ErrValidation)
	ErrStakeTooLow   = fmt.Errorf("%w: stake is below the minimum", ErrValidation)
	ErrInvalidChoice = fmt.Errorf("%w: unrecognized choice", ErrValidation)
	ErrInvalidGuess  = fmt.Errorf("%w: invalid guess", ErrValidation)
)

// Interaction errors reported back to the user.
var (
	// ErrInsufficientFunds means the solvency check failed. Nothing was debited.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	// ErrSessionConflict means the user already owns a session.
	ErrSessionConflict = errors.New("a game is already in progress")
	// ErrChannelMismatch means continuation input came from another channel.
	ErrChannelMismatch = errors.New("game is in progress in another channel")
	// ErrTimeoutExpired means the session idled past its window.
	ErrTimeoutExpired = errors.New("game timed out")
	// ErrUnknownGame means no game is registered under the command.
	ErrUnknownGame = errors.New("unknown game command")
	// ErrCooldown means a new game was requested too soon after the last one.
	ErrCooldown = errors.New("command is on cooldown")
	// ErrMissingCommand means a prefix was sent without a command token.
	ErrMissingCommand = errors.New("no game command given")
)

// IsUserError reports whether err should be shown to the user as the result
// of their interaction rather than returned to the caller.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrInsufficientFunds,
		ErrSessionConflict,
		ErrChannelMismatch,
		ErrTimeoutExpired,
		ErrUnknownGame,
		ErrCooldown,
		ErrMissingCommand,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

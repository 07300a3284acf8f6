// Package service holds the message dispatcher and the points operations
// built on the ledger.
package service

import (
	"context"
	"errors"
	"fmt"

	"points-game-bot/internal/ledger"
)

// Points errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
)

// IsUserError reports whether err is a points error meant for the user.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSelfTransfer)
}

// Ranker lists the richest accounts of a community.
type Ranker interface {
	Top(ctx context.Context, guildID int64, limit int) ([]ledger.Standing, error)
}

// PointsService serves balance, transfer and ranking queries.
type PointsService struct {
	ledger ledger.Ledger
	ranker Ranker
}

// NewPointsService creates a PointsService.
func NewPointsService(l ledger.Ledger, r Ranker) *PointsService {
	return &PointsService{ledger: l, ranker: r}
}

// Balance returns the user's points; a user without an account has zero.
func (s *PointsService) Balance(ctx context.Context, guildID, userID int64) (int64, error) {
	p, _, err := s.ledger.Balance(ctx, guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return p, nil
}

// Send moves amount points from one user to another.
func (s *PointsService) Send(ctx context.Context, guildID, fromID, toID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if fromID == toID {
		return ErrSelfTransfer
	}

	ok, err := s.ledger.Transfer(ledger.WithReason(ctx, ledger.ReasonTransfer), guildID, fromID, toID, amount)
	if err != nil {
		return fmt.Errorf("failed to transfer: %w", err)
	}
	if !ok {
		return ErrInsufficientBalance
	}
	return nil
}

// Top returns up to limit accounts ordered by points.
func (s *PointsService) Top(ctx context.Context, guildID int64, limit int) ([]ledger.Standing, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.ranker.Top(ctx, guildID, limit)
}

// MessageAwarder credits points for chatting.
type MessageAwarder struct {
	ledger ledger.Ledger
	points int64
}

// NewMessageAwarder creates an awarder crediting points per message. A
// non-positive amount disables it.
func NewMessageAwarder(l ledger.Ledger, points int64) *MessageAwarder {
	return &MessageAwarder{ledger: l, points: points}
}

// Award credits one message.
func (a *MessageAwarder) Award(ctx context.Context, msg Message) error {
	if a.points <= 0 || msg.Bot || msg.GuildID == 0 {
		return nil
	}
	_, err := a.ledger.Add(ledger.WithReason(ctx, ledger.ReasonMessage), msg.GuildID, msg.UserID, a.points)
	return err
}

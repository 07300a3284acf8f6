package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"points-game-bot/internal/ledger"
	"points-game-bot/internal/model"
)

// PointsRepository is a ledger.Ledger backed by the points table. Every
// mutation runs in one transaction together with its point_events rows.
type PointsRepository struct {
	pool   *pgxpool.Pool
	events *EventRepository
}

// NewPointsRepository creates a new PointsRepository instance.
func NewPointsRepository(pool *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{pool: pool, events: NewEventRepository(pool)}
}

// Events returns the journal written alongside balance changes.
func (r *PointsRepository) Events() *EventRepository {
	return r.events
}

// Balance returns the member's points; ok is false when no row exists.
func (r *PointsRepository) Balance(ctx context.Context, guildID, userID int64) (int64, bool, error) {
	const query = `SELECT points FROM points WHERE guild_id = $1 AND user_id = $2`

	var points int64
	err := r.pool.QueryRow(ctx, query, guildID, userID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get points: %w", err)
	}
	return points, true, nil
}

// Add applies delta and returns the new balance, creating the row on first use.
func (r *PointsRepository) Add(ctx context.Context, guildID, userID, delta int64) (int64, error) {
	var balance int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = r.upsert(ctx, tx, guildID, userID, delta)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Withdraw subtracts amount when the balance is at least reserve.
func (r *PointsRepository) Withdraw(ctx context.Context, guildID, userID, amount, reserve int64) (int64, error) {
	if amount <= 0 {
		return 0, ledger.ErrInvalidAmount
	}

	const query = `
		UPDATE points
		SET points = points - $3, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2 AND points >= $4
		RETURNING points
	`

	var balance int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query, guildID, userID, amount, reserve).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ledger.ErrInsufficientFunds
			}
			return fmt.Errorf("failed to withdraw points: %w", err)
		}
		return r.journal(ctx, tx, guildID, userID, -amount, balance)
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

var errDeclined = errors.New("transfer declined")

// Transfer moves amount between two members of the same guild. Both rows are
// locked in user id order so concurrent opposite transfers cannot deadlock.
func (r *PointsRepository) Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}

	const lockQuery = `
		SELECT user_id, points
		FROM points
		WHERE guild_id = $1 AND user_id = ANY($2)
		ORDER BY user_id
		FOR UPDATE
	`

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockQuery, guildID, []int64{fromID, toID})
		if err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
		balances := make(map[int64]int64, 2)
		for rows.Next() {
			var id, points int64
			if err := rows.Scan(&id, &points); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan account: %w", err)
			}
			balances[id] = points
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating accounts: %w", err)
		}

		if balances[fromID] < amount {
			return errDeclined
		}
		if _, err := r.upsert(ctx, tx, guildID, fromID, -amount); err != nil {
			return err
		}
		_, err = r.upsert(ctx, tx, guildID, toID, amount)
		return err
	})
	if errors.Is(err, errDeclined) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Top returns the guild's highest balances, best first.
func (r *PointsRepository) Top(ctx context.Context, guildID int64, limit int) ([]ledger.Standing, error) {
	const query = `
		SELECT user_id, points
		FROM points
		WHERE guild_id = $1
		ORDER BY points DESC, user_id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top points: %w", err)
	}
	defer rows.Close()

	var out []ledger.Standing
	for rows.Next() {
		var s ledger.Standing
		if err := rows.Scan(&s.UserID, &s.Points); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standings: %w", err)
	}

	return out, nil
}

func (r *PointsRepository) upsert(ctx context.Context, tx pgx.Tx, guildID, userID, delta int64) (int64, error) {
	const query = `
		INSERT INTO points (guild_id, user_id, points, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET points = points.points + EXCLUDED.points, updated_at = NOW()
		RETURNING points
	`

	var balance int64
	if err := tx.QueryRow(ctx, query, guildID, userID, delta).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to update points: %w", err)
	}
	return balance, r.journal(ctx, tx, guildID, userID, delta, balance)
}

func (r *PointsRepository) journal(ctx context.Context, tx pgx.Tx, guildID, userID, delta, balance int64) error {
	return r.events.record(ctx, tx, &model.Event{
		GuildID: guildID,
		UserID:  userID,
		Delta:   delta,
		Kind:    string(ledger.ReasonFrom(ctx)),
		Balance: balance,
	})
}

func (r *PointsRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var _ ledger.Ledger = (*PointsRepository)(nil)

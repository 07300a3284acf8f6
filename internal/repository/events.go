package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"points-game-bot/internal/model"
)

// EventRepository reads and appends point_events rows.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// record appends one event using q, which is normally the transaction that
// changed the balance.
func (r *EventRepository) record(ctx context.Context, q querier, e *model.Event) error {
	const query = `
		INSERT INTO point_events (guild_id, user_id, delta, kind, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query, e.GuildID, e.UserID, e.Delta, e.Kind, e.Balance).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record point event: %w", err)
	}
	return nil
}

// ListByUser returns a member's most recent events, newest first.
func (r *EventRepository) ListByUser(ctx context.Context, guildID, userID int64, limit int) ([]*model.Event, error) {
	const query = `
		SELECT id, guild_id, user_id, delta, kind, balance, created_at
		FROM point_events
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY id DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get point events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.GuildID, &e.UserID, &e.Delta, &e.Kind, &e.Balance, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan point event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating point events: %w", err)
	}

	return events, nil
}

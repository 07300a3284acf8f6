// Package repository provides the Postgres-backed points ledger.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS points (
		guild_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		points BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (guild_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS points_guild_rank_idx ON points (guild_id, points DESC)`,
	`CREATE TABLE IF NOT EXISTS point_events (
		id BIGSERIAL PRIMARY KEY,
		guild_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		delta BIGINT NOT NULL,
		kind VARCHAR(32) NOT NULL,
		balance BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS point_events_user_idx ON point_events (guild_id, user_id, created_at DESC)`,
}

// Migrate creates the ledger tables when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("Database schema ensured")
	return nil
}

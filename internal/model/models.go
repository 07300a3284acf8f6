// Package model defines the rows persisted by the Postgres ledger.
package model

import "time"

// Account is one member's balance inside a guild.
type Account struct {
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Points    int64     `db:"points"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Event is one journaled balance change.
type Event struct {
	ID        int64     `db:"id"`
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Delta     int64     `db:"delta"`
	Kind      string    `db:"kind"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
}

// Event kinds. They mirror the reasons the engine attaches to ledger calls.
const (
	KindUnknown  = "unknown"
	KindStake    = "game_stake"
	KindPayout   = "game_payout"
	KindVoice    = "voice_award"
	KindMessage  = "message_award"
	KindTransfer = "transfer"
)

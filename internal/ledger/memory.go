package ledger

import (
	"context"
	"sort"
	"sync"
)

type accountKey struct {
	guildID int64
	userID  int64
}

// Entry is one journaled mutation recorded by Memory.
type Entry struct {
	GuildID int64
	UserID  int64
	Delta   int64
	Reason  Reason
}

// Standing is one row of a ranking.
type Standing struct {
	UserID int64
	Points int64
}

// Memory is an in-process Ledger guarded by a single mutex. It backs tests and
// the "memory" database driver; balances vanish with the process.
type Memory struct {
	mu       sync.Mutex
	balances map[accountKey]int64
	journal  []Entry
	// FailWith, when set, is returned by every mutation. Tests use it to
	// simulate a ledger outage.
	FailWith error
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[accountKey]int64)}
}

// Seed sets a balance directly without journaling.
func (m *Memory) Seed(guildID, userID, points int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountKey{guildID, userID}] = points
}

// Balance implements Ledger.
func (m *Memory) Balance(_ context.Context, guildID, userID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.balances[accountKey{guildID, userID}]
	return p, ok, nil
}

// Add implements Ledger.
func (m *Memory) Add(ctx context.Context, guildID, userID, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	return m.apply(ctx, guildID, userID, delta), nil
}

// Transfer implements Ledger.
func (m *Memory) Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (bool, error) {
	if amount <= 0 {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return false, m.FailWith
	}
	if m.balances[accountKey{guildID, fromID}] < amount {
		return false, nil
	}
	m.apply(ctx, guildID, fromID, -amount)
	m.apply(ctx, guildID, toID, amount)
	return true, nil
}

// Withdraw implements Ledger.
func (m *Memory) Withdraw(ctx context.Context, guildID, userID, amount, reserve int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	if m.balances[accountKey{guildID, userID}] < reserve {
		return 0, ErrInsufficientFunds
	}
	return m.apply(ctx, guildID, userID, -amount), nil
}

func (m *Memory) apply(ctx context.Context, guildID, userID, delta int64) int64 {
	k := accountKey{guildID, userID}
	m.balances[k] += delta
	m.journal = append(m.journal, Entry{GuildID: guildID, UserID: userID, Delta: delta, Reason: ReasonFrom(ctx)})
	return m.balances[k]
}

// Journal returns a copy of every recorded mutation in order.
func (m *Memory) Journal() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.journal...)
}

// Top returns the community's highest balances, best first.
func (m *Memory) Top(_ context.Context, guildID int64, limit int) ([]Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Standing
	for k, p := range m.balances {
		if k.guildID == guildID {
			out = append(out, Standing{UserID: k.userID, Points: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

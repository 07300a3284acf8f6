package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMemoryBalanceAbsent(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.Balance(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := m.Add(context.Background(), 1, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	p, ok, err := m.Balance(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), p)
}

func TestMemoryWithdraw(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		balance  int64
		amount   int64
		reserve  int64
		wantErr  error
		wantLeft int64
	}{
		{"covers reserve", 500, 100, 100, nil, 400},
		{"exact reserve", 150, 100, 150, nil, 50},
		{"reserve above balance", 149, 100, 150, ErrInsufficientFunds, 149},
		{"zero amount", 500, 0, 0, ErrInvalidAmount, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			m.Seed(1, 1, tt.balance)
			_, err := m.Withdraw(ctx, 1, 1, tt.amount, tt.reserve)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			p, _, _ := m.Balance(ctx, 1, 1)
			assert.Equal(t, tt.wantLeft, p)
		})
	}
}

func TestMemoryTransfer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Seed(1, 10, 300)

	ok, err := m.Transfer(ctx, 1, 10, 20, 0)
	require.NoError(t, err)
	assert.False(t, ok, "non-positive amounts are rejected")

	ok, err = m.Transfer(ctx, 1, 10, 20, 301)
	require.NoError(t, err)
	assert.False(t, ok, "insufficient sender balance is rejected")

	ok, err = m.Transfer(ctx, 1, 10, 20, 120)
	require.NoError(t, err)
	assert.True(t, ok)

	from, _, _ := m.Balance(ctx, 1, 10)
	to, _, _ := m.Balance(ctx, 1, 20)
	assert.Equal(t, int64(180), from)
	assert.Equal(t, int64(120), to)
}

func TestMemoryFailure(t *testing.T) {
	boom := errors.New("db down")
	m := NewMemory()
	m.FailWith = boom

	_, err := m.Add(context.Background(), 1, 1, 1)
	assert.ErrorIs(t, err, boom)
	_, err = m.Withdraw(context.Background(), 1, 1, 1, 1)
	assert.ErrorIs(t, err, boom)
}

func TestMemoryJournalReason(t *testing.T) {
	m := NewMemory()
	ctx := WithReason(context.Background(), ReasonVoice)
	_, err := m.Add(ctx, 1, 2, 3)
	require.NoError(t, err)
	_, err = m.Add(context.Background(), 1, 2, 1)
	require.NoError(t, err)

	j := m.Journal()
	require.Len(t, j, 2)
	assert.Equal(t, ReasonVoice, j[0].Reason)
	assert.Equal(t, ReasonUnknown, j[1].Reason)
}

func TestMemoryTop(t *testing.T) {
	m := NewMemory()
	m.Seed(1, 1, 10)
	m.Seed(1, 2, 30)
	m.Seed(1, 3, 20)
	m.Seed(2, 4, 99)

	top, err := m.Top(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []Standing{{UserID: 2, Points: 30}, {UserID: 3, Points: 20}}, top)
}

// TestWithdrawNeverOverdrawsProperty races many withdrawals against one
// balance: the balance must never fall below zero and every success must be
// accounted for.
func TestWithdrawNeverOverdrawsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 2000).Draw(t, "balance")
		n := rapid.IntRange(2, 30).Draw(t, "n")
		stake := rapid.Int64Range(1, 300).Draw(t, "stake")

		m := NewMemory()
		m.Seed(1, 1, balance)

		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := int64(0)
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				if _, err := m.Withdraw(context.Background(), 1, 1, stake, stake); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		left, _, _ := m.Balance(context.Background(), 1, 1)
		if left < 0 {
			t.Fatalf("balance went negative: %d", left)
		}
		if left != balance-successes*stake {
			t.Fatalf("balance %d, want %d", left, balance-successes*stake)
		}
	})
}

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"points-game-bot/internal/game"
	"points-game-bot/internal/game/coin"
	"points-game-bot/internal/game/gametest"
	"points-game-bot/internal/game/janken"
	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/random"
	"points-game-bot/internal/presence"
	"points-game-bot/internal/service"
)

const (
	guildID int64 = 1
	lobby   int64 = 5
	alice   int64 = 11
	bob     int64 = 12
)

type roster struct {
	mu     sync.Mutex
	states map[int64]presence.VoiceState
}

func (r *roster) VoiceState(_, userID int64) (presence.VoiceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[userID]
	return s, ok
}

func (r *roster) ChannelMembers(guild, channelID int64) []presence.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []presence.Member
	for id, s := range r.states {
		if s.ChannelID == channelID {
			out = append(out, presence.Member{GuildID: guild, UserID: id})
		}
	}
	return out
}

type fixture struct {
	engine *Engine
	ledger *ledger.Memory
	rand   *random.Scripted
	outbox *gametest.Outbox
	roster *roster
	disp   *service.Dispatcher
}

func newFixture(t *testing.T, clock quartz.Clock, interval time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		ledger: ledger.NewMemory(),
		rand:   &random.Scripted{},
		outbox: &gametest.Outbox{},
		roster: &roster{states: map[int64]presence.VoiceState{}},
	}
	registry := game.NewRegistry().MustRegister(coin.New(), janken.New())
	f.disp = service.NewDispatcher(registry, f.ledger, f.rand, f.outbox, clock, service.DefaultDispatcherConfig())
	f.engine = New(
		f.disp,
		service.NewMessageAwarder(f.ledger, 1),
		presence.NewEngine(f.ledger, f.roster, presence.DefaultConfig()),
		clock,
		interval,
	)
	return f
}

func (f *fixture) balance(userID int64) int64 {
	p, _, _ := f.ledger.Balance(context.Background(), guildID, userID)
	return p
}

func TestMessageAwardedBeforeGame(t *testing.T) {
	f := newFixture(t, quartz.NewMock(t), time.Minute)
	f.ledger.Seed(guildID, alice, 99)
	f.rand.Choices = []int{0}

	handled, err := f.engine.HandleMessage(context.Background(), service.Message{
		GuildID: guildID, ChannelID: 2, UserID: alice, Content: "m.coin 100 heads",
	})
	require.NoError(t, err)
	assert.True(t, handled)
	// 99 + 1 for the message covers the 100 stake.
	assert.Equal(t, int64(170), f.balance(alice))
}

func TestPlainMessageOnlyAwards(t *testing.T) {
	f := newFixture(t, quartz.NewMock(t), time.Minute)
	handled, err := f.engine.HandleMessage(context.Background(), service.Message{
		GuildID: guildID, ChannelID: 2, UserID: alice, Content: "good morning",
	})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Equal(t, int64(1), f.balance(alice))
}

func TestSweepTickCoversBothEngines(t *testing.T) {
	clock := quartz.NewMock(t)
	f := newFixture(t, clock, time.Minute)
	ctx := context.Background()

	f.roster.states[alice] = presence.VoiceState{ChannelID: lobby}
	f.roster.states[bob] = presence.VoiceState{ChannelID: lobby}
	require.NoError(t, f.engine.HandleVoiceTransition(ctx,
		presence.Member{GuildID: guildID, UserID: alice}, presence.VoiceState{}, f.roster.states[alice], clock.Now()))

	_, err := f.engine.HandleMessage(ctx, service.Message{GuildID: guildID, ChannelID: 2, UserID: bob, Content: "m.janken"})
	require.NoError(t, err)
	require.Equal(t, 1, f.disp.Sessions().Len())

	clock.Advance(7 * time.Minute).MustWait(ctx)
	require.NoError(t, f.engine.SweepTick(ctx, clock.Now()))

	assert.Equal(t, int64(1), f.balance(alice))
	// bob: one message point plus seven voice minutes
	assert.Equal(t, int64(2), f.balance(bob))
	assert.Equal(t, 0, f.disp.Sessions().Len())
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	clock := quartz.NewReal()
	f := newFixture(t, clock, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.roster.states[alice] = presence.VoiceState{ChannelID: lobby}
	f.roster.states[bob] = presence.VoiceState{ChannelID: lobby}
	joined := clock.Now().Add(-8 * time.Minute)
	require.NoError(t, f.engine.HandleVoiceTransition(ctx,
		presence.Member{GuildID: guildID, UserID: alice}, presence.VoiceState{}, f.roster.states[alice], joined))

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	require.Eventually(t, func() bool { return f.balance(alice) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestReconcilePicksUpMembersAlreadyInVoice(t *testing.T) {
	f := newFixture(t, quartz.NewMock(t), time.Minute)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	f.roster.states[alice] = presence.VoiceState{ChannelID: lobby}
	f.roster.states[bob] = presence.VoiceState{ChannelID: lobby}

	require.NoError(t, f.engine.Reconcile(ctx, guildID, alice, t0))
	require.NoError(t, f.engine.Reconcile(ctx, guildID, bob, t0))
	require.NoError(t, f.engine.SweepTick(ctx, t0.Add(7*time.Minute)))

	for _, id := range []int64{alice, bob} {
		p, _, err := f.ledger.Balance(ctx, guildID, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p)
	}
}

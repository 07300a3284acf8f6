package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"points-game-bot/internal/game"
	"points-game-bot/internal/game/coin"
	"points-game-bot/internal/game/gametest"
	"points-game-bot/internal/game/hitblow"
	"points-game-bot/internal/game/janken"
	"points-game-bot/internal/game/omikuji"
	"points-game-bot/internal/game/slot"
	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/random"
)

const (
	guildID   int64 = 1
	channelID int64 = 2
	userID    int64 = 3
)

type harness struct {
	d      *Dispatcher
	clock  *quartz.Mock
	ledger *ledger.Memory
	rand   *random.Scripted
	outbox *gametest.Outbox
}

func newHarness(t *testing.T, balance int64) *harness {
	t.Helper()
	h := &harness{
		clock:  quartz.NewMock(t),
		ledger: ledger.NewMemory(),
		rand:   &random.Scripted{},
		outbox: &gametest.Outbox{},
	}
	h.ledger.Seed(guildID, userID, balance)
	registry := game.NewRegistry().MustRegister(slot.New(), omikuji.New(), hitblow.New(), janken.New(), coin.New())
	h.d = NewDispatcher(registry, h.ledger, h.rand, h.outbox, h.clock, DefaultDispatcherConfig())
	return h
}

func (h *harness) send(t *testing.T, content string) bool {
	t.Helper()
	handled, err := h.d.HandleMessage(context.Background(), Message{
		GuildID: guildID, ChannelID: channelID, UserID: userID, Content: content,
	})
	require.NoError(t, err)
	return handled
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d).MustWait(context.Background())
}

func (h *harness) balance() int64 {
	p, _, _ := h.ledger.Balance(context.Background(), guildID, userID)
	return p
}

func TestCoinTossScenario(t *testing.T) {
	h := newHarness(t, 500)
	h.rand.Choices = []int{0}

	assert.True(t, h.send(t, "m.coin 100 heads"))
	assert.Equal(t, int64(570), h.balance())
	assert.Equal(t, 0, h.d.Sessions().Len())
	assert.Contains(t, h.outbox.Last(), "x1.7")
}

func TestAllPrefixes(t *testing.T) {
	for _, prefix := range []string{"m.", "myami.", "my."} {
		t.Run(prefix, func(t *testing.T) {
			h := newHarness(t, 500)
			h.rand.Choices = []int{1}
			assert.True(t, h.send(t, prefix+"COIN 100 t"))
			assert.Equal(t, int64(570), h.balance())
		})
	}
}

func TestIgnoresPlainChatAndBots(t *testing.T) {
	h := newHarness(t, 500)
	assert.False(t, h.send(t, "hello there"))

	handled, err := h.d.HandleMessage(context.Background(), Message{
		GuildID: guildID, ChannelID: channelID, UserID: userID, Bot: true, Content: "m.coin 100 h",
	})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = h.d.HandleMessage(context.Background(), Message{ChannelID: channelID, UserID: userID, Content: "m.coin 100 h"})
	require.NoError(t, err)
	assert.False(t, handled, "direct messages are ignored")
	assert.Empty(t, h.outbox.Messages())
}

func TestSecondGameIsNotStarted(t *testing.T) {
	h := newHarness(t, 500)
	h.rand.Samples = [][]int{{4, 7, 2}}

	require.True(t, h.send(t, "m.hitblow 100"))
	require.Equal(t, 1, h.d.Sessions().Len())
	before, _ := h.d.Sessions().Get(userID)

	h.advance(2 * time.Second)
	assert.True(t, h.send(t, "m.slot 100"))

	assert.Equal(t, 1, h.d.Sessions().Len())
	after, _ := h.d.Sessions().Get(userID)
	assert.Same(t, before, after)
	assert.Equal(t, hitblow.MaxTries, after.(*game.GuessSession).AttemptsLeft)
	assert.Equal(t, int64(400), h.balance(), "slot never ran")
}

func TestChannelMismatchLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t, 500)
	h.rand.Samples = [][]int{{4, 7, 2}}
	require.True(t, h.send(t, "m.hit 100"))

	sess, _ := h.d.Sessions().Get(userID)
	snapshot := *sess.(*game.GuessSession)

	h.advance(5 * time.Second)
	handled, err := h.d.HandleMessage(context.Background(), Message{
		GuildID: guildID, ChannelID: channelID + 1, UserID: userID, Content: "472",
	})
	require.NoError(t, err)
	assert.True(t, handled)

	after, _ := h.d.Sessions().Get(userID)
	assert.Equal(t, snapshot, *after.(*game.GuessSession))
	assert.Equal(t, int64(400), h.balance())
	assert.Contains(t, h.outbox.Last(), game.ErrChannelMismatch.Error())
}

func TestHitBlowThroughDispatcher(t *testing.T) {
	h := newHarness(t, 500)
	h.rand.Samples = [][]int{{4, 7, 2}}
	require.True(t, h.send(t, "m.hit 100"))

	h.advance(10 * time.Second)
	assert.True(t, h.send(t, "472"))
	assert.Equal(t, int64(700), h.balance())
	assert.Equal(t, 0, h.d.Sessions().Len())
}

func TestCooldownIsNotReset(t *testing.T) {
	h := newHarness(t, 1000)
	h.rand.Choices = []int{1, 1}

	require.True(t, h.send(t, "m.coin 100 h"))
	assert.Equal(t, int64(900), h.balance())

	assert.True(t, h.send(t, "m.coin 100 h"))
	assert.Contains(t, h.outbox.Last(), game.ErrCooldown.Error())

	h.advance(500 * time.Millisecond)
	assert.True(t, h.send(t, "m.coin 100 h"))
	assert.Contains(t, h.outbox.Last(), game.ErrCooldown.Error())
	assert.Equal(t, int64(900), h.balance())

	h.advance(500 * time.Millisecond)
	assert.True(t, h.send(t, "m.coin 100 h"))
	assert.Equal(t, int64(800), h.balance())
}

func TestTimeoutOnNextTouchForfeits(t *testing.T) {
	h := newHarness(t, 500)
	h.rand.Samples = [][]int{{4, 7, 2}}
	require.True(t, h.send(t, "m.hit 100"))

	h.advance(3 * time.Minute)
	assert.False(t, h.send(t, "472"), "a timed out session does not consume the message")
	assert.Equal(t, 0, h.d.Sessions().Len())
	assert.Equal(t, int64(400), h.balance())
	assert.Contains(t, h.outbox.Last(), "forfeited")
}

func TestTimedOutSessionFallsThroughToCommand(t *testing.T) {
	h := newHarness(t, 500)
	require.True(t, h.send(t, "m.slot"))

	h.advance(2 * time.Minute)
	h.rand.Choices = []int{0}
	assert.True(t, h.send(t, "m.coin 100 h"))
	assert.Equal(t, int64(570), h.balance())
}

func TestExpireIdle(t *testing.T) {
	h := newHarness(t, 500)
	require.True(t, h.send(t, "m.janken"))
	require.Equal(t, 1, h.d.Sessions().Len())

	h.advance(time.Minute)
	require.NoError(t, h.d.ExpireIdle(context.Background(), h.clock.Now()))
	assert.Equal(t, 1, h.d.Sessions().Len())

	h.advance(time.Minute)
	require.NoError(t, h.d.ExpireIdle(context.Background(), h.clock.Now()))
	assert.Equal(t, 0, h.d.Sessions().Len())
	assert.Contains(t, h.outbox.Last(), "timed out waiting for input")
}

func TestActivityExtendsTimeout(t *testing.T) {
	h := newHarness(t, 500)
	require.True(t, h.send(t, "m.coin"))

	h.advance(100 * time.Second)
	require.True(t, h.send(t, "heads"))
	h.advance(100 * time.Second)
	require.NoError(t, h.d.ExpireIdle(context.Background(), h.clock.Now()))
	assert.Equal(t, 1, h.d.Sessions().Len())
}

func TestCancelPendingInput(t *testing.T) {
	h := newHarness(t, 500)
	require.True(t, h.send(t, "m.slot"))

	assert.True(t, h.send(t, "Quit"))
	assert.Equal(t, 0, h.d.Sessions().Len())
	assert.Equal(t, int64(500), h.balance())
	assert.Empty(t, h.ledger.Journal())
}

func TestUserErrorKeepsPendingSession(t *testing.T) {
	h := newHarness(t, 500)
	require.True(t, h.send(t, "m.omikuji"))

	assert.True(t, h.send(t, "50"))
	assert.Equal(t, 1, h.d.Sessions().Len())
	assert.Contains(t, h.outbox.Last(), "minimum 100")

	h.rand.Weighted = []int{3}
	assert.True(t, h.send(t, "100"))
	assert.Equal(t, 0, h.d.Sessions().Len())
	assert.Equal(t, int64(500), h.balance())
}

func TestUnknownAndMissingCommand(t *testing.T) {
	h := newHarness(t, 500)
	assert.True(t, h.send(t, "m.poker 100"))
	assert.Contains(t, h.outbox.Last(), game.ErrUnknownGame.Error())

	h.advance(time.Second)
	assert.True(t, h.send(t, "m.  "))
	assert.Contains(t, h.outbox.Last(), game.ErrMissingCommand.Error())
}

func TestLedgerFailureIsReturned(t *testing.T) {
	h := newHarness(t, 500)
	boom := errors.New("connection reset")
	h.ledger.FailWith = boom

	handled, err := h.d.HandleMessage(context.Background(), Message{
		GuildID: guildID, ChannelID: channelID, UserID: userID, Content: "m.coin 100 heads",
	})
	assert.True(t, handled)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, h.d.Sessions().Len())
}

func TestExtraCommands(t *testing.T) {
	h := newHarness(t, 500)
	var got []string
	h.d.HandleCommand(func(_ context.Context, _ Message, args []string) error {
		got = args
		return ErrSelfTransfer
	}, "send", "pay")

	assert.True(t, h.send(t, "m.PAY <@3> 10"))
	assert.Equal(t, []string{"<@3>", "10"}, got)
	assert.Contains(t, h.outbox.Last(), ErrSelfTransfer.Error())
}

func TestConcurrentUsers(t *testing.T) {
	h := newHarness(t, 0)
	const users = 20
	for i := int64(0); i < users; i++ {
		h.ledger.Seed(guildID, 100+i, 500)
	}
	h.d.rand = random.New(7)

	var wg sync.WaitGroup
	for i := int64(0); i < users; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := h.d.HandleMessage(context.Background(), Message{
				GuildID: guildID, ChannelID: channelID, UserID: id, Content: "m.coin 100 heads",
			})
			assert.NoError(t, err)
		}(100 + i)
	}
	wg.Wait()

	for i := int64(0); i < users; i++ {
		p, _, _ := h.ledger.Balance(context.Background(), guildID, 100+i)
		assert.Contains(t, []int64{400, 570}, p)
	}
	for _, m := range h.outbox.Messages() {
		assert.False(t, strings.HasPrefix(m.Text, "❌"), m.Text)
	}
}

// Package gametest provides fixtures for testing game variants.
package gametest

import (
	"context"
	"sync"
	"time"

	"points-game-bot/internal/game"
	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/random"
)

// Fixed identifiers used by NewEnv.
const (
	GuildID   int64 = 10
	ChannelID int64 = 20
	UserID    int64 = 30
)

// Epoch is the Now of every env built by NewEnv.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Message is one delivered message.
type Message struct {
	ChannelID int64
	Text      string
}

// Outbox is a Messenger that records what it was asked to send.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned by Send after recording the message.
	Err error
}

// Send implements game.Messenger.
func (o *Outbox) Send(_ context.Context, channelID int64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, Message{ChannelID: channelID, Text: text})
	return o.Err
}

// Messages returns the recorded messages.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Last returns the text of the most recent message.
func (o *Outbox) Last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return ""
	}
	return o.messages[len(o.messages)-1].Text
}

// Fixture bundles an env with the fakes behind it.
type Fixture struct {
	Env    *game.Env
	Ledger *ledger.Memory
	Rand   *random.Scripted
	Outbox *Outbox
}

// New builds a fixture whose user starts with balance points.
func New(balance int64) *Fixture {
	f := &Fixture{
		Ledger: ledger.NewMemory(),
		Rand:   &random.Scripted{},
		Outbox: &Outbox{},
	}
	if balance != 0 {
		f.Ledger.Seed(GuildID, UserID, balance)
	}
	f.Env = &game.Env{
		GuildID:   GuildID,
		ChannelID: ChannelID,
		UserID:    UserID,
		Now:       Epoch,
		Ledger:    f.Ledger,
		Rand:      f.Rand,
		Messenger: f.Outbox,
		Rules:     game.DefaultRules(),
	}
	return f
}

// Balance returns the user's balance, zero when absent.
func (f *Fixture) Balance() int64 {
	p, _, _ := f.Ledger.Balance(context.Background(), GuildID, UserID)
	return p
}

// Fresh returns a copy of the env with no recorded outcomes, for the next
// interaction in a multi-step test.
func (f *Fixture) Fresh() *game.Env {
	env := *f.Env
	env.Outcomes = nil
	f.Env = &env
	return f.Env
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"points-game-bot/internal/game"
	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/lock"
	"points-game-bot/internal/pkg/random"
)

// Message is a normalized inbound chat message.
type Message struct {
	GuildID   int64
	ChannelID int64
	UserID    int64
	Bot       bool
	Content   string
}

// CommandHandler serves a prefixed text command that is not a game.
type CommandHandler func(ctx context.Context, msg Message, args []string) error

// DispatcherConfig holds the dispatch tunables.
type DispatcherConfig struct {
	Prefixes []string
	Cooldown time.Duration
	Rules    game.Rules
}

// DefaultDispatcherConfig returns the stock prefixes, a 1s cooldown and the
// default game rules.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Prefixes: []string{"m.", "myami.", "my."},
		Cooldown: time.Second,
		Rules:    game.DefaultRules(),
	}
}

// Dispatcher routes messages to game sessions. It owns the session store,
// enforces the start cooldown and expires idle sessions.
type Dispatcher struct {
	registry  *game.Registry
	sessions  *game.SessionStore
	ledger    ledger.Ledger
	rand      random.Source
	messenger game.Messenger
	clock     quartz.Clock
	locks     *lock.UserLock
	cfg       DispatcherConfig

	commands map[string]CommandHandler

	mu        sync.Mutex
	cooldowns map[int64]time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	registry *game.Registry,
	l ledger.Ledger,
	rng random.Source,
	messenger game.Messenger,
	clock quartz.Clock,
	cfg DispatcherConfig,
) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		sessions:  game.NewSessionStore(),
		ledger:    l,
		rand:      rng,
		messenger: messenger,
		clock:     clock,
		locks:     lock.NewUserLock(),
		cfg:       cfg,
		commands:  make(map[string]CommandHandler),
		cooldowns: make(map[int64]time.Time),
	}
}

// HandleCommand registers a non-game command under one or more names.
func (d *Dispatcher) HandleCommand(h CommandHandler, names ...string) {
	for _, n := range names {
		d.commands[strings.ToLower(n)] = h
	}
}

// Sessions exposes the session store.
func (d *Dispatcher) Sessions() *game.SessionStore {
	return d.sessions
}

// HandleMessage processes one message and reports whether it was consumed.
// Only ledger and platform failures are returned; user mistakes are answered
// in the channel.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Message) (bool, error) {
	if msg.Bot || msg.GuildID == 0 {
		return false, nil
	}
	if err := d.locks.LockContext(ctx, msg.UserID); err != nil {
		return false, err
	}
	defer d.locks.Unlock(msg.UserID)

	now := d.clock.Now()
	if sess, ok := d.sessions.Get(msg.UserID); ok {
		handled, err := d.continueSession(ctx, msg, sess, now)
		if handled || err != nil {
			return handled, err
		}
	}

	prefix, ok := d.matchPrefix(msg.Content)
	if !ok {
		return false, nil
	}
	if !d.passCooldown(msg.UserID, now) {
		d.report(ctx, msg, game.ErrCooldown)
		return true, nil
	}

	parts := strings.Fields(strings.TrimSpace(msg.Content)[len(prefix):])
	if len(parts) == 0 {
		d.report(ctx, msg, game.ErrMissingCommand)
		return true, nil
	}
	command, args := strings.ToLower(parts[0]), parts[1:]

	if d.sessions.Has(msg.UserID) {
		d.report(ctx, msg, game.ErrSessionConflict)
		return true, nil
	}

	g, ok := d.registry.Get(command)
	if !ok {
		if h, ok := d.commands[command]; ok {
			return true, d.settleError(ctx, msg, h(ctx, msg, args))
		}
		d.report(ctx, msg, game.ErrUnknownGame)
		return true, nil
	}

	env := d.env(msg, now)
	sess, err := g.Start(ctx, env, args)
	d.logOutcomes(env)
	if sess != nil {
		if cerr := d.sessions.Claim(msg.UserID, sess); cerr != nil {
			d.report(ctx, msg, cerr)
		} else {
			log.Info().
				Int64("guild_id", msg.GuildID).
				Int64("user_id", msg.UserID).
				Str("game", g.Key()).
				Str("session_id", sess.Meta().ID).
				Msg("Game session started")
		}
	}
	return true, d.settleError(ctx, msg, err)
}

func (d *Dispatcher) continueSession(ctx context.Context, msg Message, sess game.Session, now time.Time) (bool, error) {
	h := sess.Meta()
	if msg.ChannelID != h.ChannelID {
		log.Warn().
			Int64("user_id", msg.UserID).
			Int64("channel_id", msg.ChannelID).
			Str("session_id", h.ID).
			Msg("Session input from another channel")
		d.report(ctx, msg, game.ErrChannelMismatch)
		return true, nil
	}

	g, ok := d.registry.ByKey(h.Game)
	if !ok {
		d.sessions.Pop(msg.UserID)
		return false, nil
	}

	if h.IdleFor(now) >= d.cfg.Rules.TimeoutFor(sess) {
		d.sessions.Pop(msg.UserID)
		return false, d.expire(ctx, g, msg.UserID, sess, now)
	}

	if in, ok := sess.(*game.InputSession); ok && d.cfg.Rules.IsCancel(msg.Content) {
		d.sessions.Pop(msg.UserID)
		log.Info().Str("session_id", in.ID).Int64("user_id", msg.UserID).Msg("Game input cancelled")
		d.say(ctx, msg.ChannelID, "Game cancelled.")
		return true, nil
	}

	h.Touch(now)
	env := d.env(msg, now)
	next, err := g.HandleInput(ctx, env, msg.Content, sess)
	d.logOutcomes(env)
	if next == nil {
		d.sessions.Pop(msg.UserID)
	} else {
		d.sessions.Replace(msg.UserID, next)
	}
	return true, d.settleError(ctx, msg, err)
}

// ExpireIdle times out every session idle for longer than its window at now.
// Timeouts are otherwise detected only when the owner sends a message.
func (d *Dispatcher) ExpireIdle(ctx context.Context, now time.Time) error {
	var errs []error
	for _, userID := range d.sessions.Users() {
		if err := d.expireIfIdle(ctx, userID, now); err != nil {
			errs = append(errs, err)
		}
	}
	d.pruneCooldowns(now)
	return errors.Join(errs...)
}

func (d *Dispatcher) expireIfIdle(ctx context.Context, userID int64, now time.Time) error {
	if err := d.locks.LockContext(ctx, userID); err != nil {
		return err
	}
	defer d.locks.Unlock(userID)

	sess, ok := d.sessions.Get(userID)
	if !ok || sess.Meta().IdleFor(now) < d.cfg.Rules.TimeoutFor(sess) {
		return nil
	}
	d.sessions.Pop(userID)
	g, ok := d.registry.ByKey(sess.Meta().Game)
	if !ok {
		return nil
	}
	return d.expire(ctx, g, userID, sess, now)
}

// expire runs the game's timeout for a session already removed from the store.
func (d *Dispatcher) expire(ctx context.Context, g game.Game, userID int64, sess game.Session, now time.Time) error {
	h := sess.Meta()
	env := d.env(Message{GuildID: h.GuildID, ChannelID: h.ChannelID, UserID: userID}, now)
	err := g.Timeout(ctx, env, sess)
	d.logOutcomes(env)
	log.Info().
		Int64("user_id", userID).
		Str("game", h.Game).
		Str("session_id", h.ID).
		Dur("idle", h.IdleFor(now)).
		Msg("Game session timed out")
	return err
}

func (d *Dispatcher) matchPrefix(content string) (string, bool) {
	content = strings.TrimSpace(content)
	for _, p := range d.cfg.Prefixes {
		if strings.HasPrefix(content, p) {
			return p, true
		}
	}
	return "", false
}

// passCooldown stamps the user's start time when the cooldown has elapsed.
// A rejected attempt leaves the previous stamp in place.
func (d *Dispatcher) passCooldown(userID int64, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.cooldowns[userID]; ok && now.Sub(last) < d.cfg.Cooldown {
		return false
	}
	d.cooldowns[userID] = now
	return true
}

func (d *Dispatcher) pruneCooldowns(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, last := range d.cooldowns {
		if now.Sub(last) >= d.cfg.Cooldown {
			delete(d.cooldowns, id)
		}
	}
}

func (d *Dispatcher) env(msg Message, now time.Time) *game.Env {
	return &game.Env{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Now:       now,
		Ledger:    d.ledger,
		Rand:      d.rand,
		Messenger: d.messenger,
		Rules:     d.cfg.Rules,
	}
}

// settleError answers user errors in the channel and passes the rest on.
func (d *Dispatcher) settleError(ctx context.Context, msg Message, err error) error {
	if err == nil {
		return nil
	}
	if game.IsUserError(err) || IsUserError(err) {
		d.report(ctx, msg, err)
		return nil
	}
	log.Error().Err(err).
		Int64("guild_id", msg.GuildID).
		Int64("user_id", msg.UserID).
		Msg("Message handling failed")
	return err
}

func (d *Dispatcher) report(ctx context.Context, msg Message, err error) {
	log.Debug().Err(err).Int64("user_id", msg.UserID).Msg("Rejected interaction")
	d.say(ctx, msg.ChannelID, "❌ "+err.Error())
}

func (d *Dispatcher) say(ctx context.Context, channelID int64, text string) {
	if err := d.messenger.Send(ctx, channelID, text); err != nil {
		log.Warn().Err(err).Int64("channel_id", channelID).Msg("Failed to deliver message")
	}
}

func (d *Dispatcher) logOutcomes(env *game.Env) {
	for _, o := range env.Outcomes {
		log.Info().
			Int64("guild_id", env.GuildID).
			Int64("user_id", env.UserID).
			Str("game", o.Game).
			Int64("stake", o.Stake).
			Float64("multiplier", o.Multiplier).
			Int64("payout", o.Payout).
			Int64("net", o.Net).
			Str("detail", o.Detail).
			Msg("Game settled")
	}
}

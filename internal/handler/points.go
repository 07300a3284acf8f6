// Package handler provides the text commands that sit next to the games:
// balance, transfers, the ranking and help.
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"points-game-bot/internal/game"
	"points-game-bot/internal/service"
)

// TopLimit is how many rows the ranking shows.
const TopLimit = 10

// PointsHandler serves the points commands.
type PointsHandler struct {
	points    *service.PointsService
	registry  *game.Registry
	messenger game.Messenger
	prefix    string
}

// NewPointsHandler creates a new PointsHandler. prefix is shown in help text.
func NewPointsHandler(points *service.PointsService, registry *game.Registry, messenger game.Messenger, prefix string) *PointsHandler {
	return &PointsHandler{
		points:    points,
		registry:  registry,
		messenger: messenger,
		prefix:    prefix,
	}
}

// Register adds the commands to the dispatcher.
func (h *PointsHandler) Register(d *service.Dispatcher) {
	d.HandleCommand(h.HandleBalance, "points", "balance", "pt")
	d.HandleCommand(h.HandleSend, "send", "give")
	d.HandleCommand(h.HandleTop, "top", "ranking")
	d.HandleCommand(h.HandleHelp, "help")
}

// HandleBalance replies with the sender's points.
func (h *PointsHandler) HandleBalance(ctx context.Context, msg service.Message, _ []string) error {
	p, err := h.points.Balance(ctx, msg.GuildID, msg.UserID)
	if err != nil {
		return err
	}
	return h.reply(ctx, msg, fmt.Sprintf("💰 <@%d> has %d points", msg.UserID, p))
}

// HandleSend handles "send <@user|id> <amount>".
func (h *PointsHandler) HandleSend(ctx context.Context, msg service.Message, args []string) error {
	if len(args) < 2 {
		return h.reply(ctx, msg, fmt.Sprintf("❌ Usage: %ssend @user amount", h.prefix))
	}

	toID, ok := ParseMention(args[0])
	if !ok {
		return h.reply(ctx, msg, "❌ Mention the recipient or give their user id")
	}
	amount, err := strconv.ParseInt(game.NormalizeDigits(args[1]), 10, 64)
	if err != nil {
		return h.reply(ctx, msg, "❌ Amount must be a whole number")
	}

	if err := h.points.Send(ctx, msg.GuildID, msg.UserID, toID, amount); err != nil {
		return err
	}

	left, err := h.points.Balance(ctx, msg.GuildID, msg.UserID)
	if err != nil {
		return err
	}
	log.Info().
		Int64("guild_id", msg.GuildID).
		Int64("user_id", msg.UserID).
		Int64("to_user_id", toID).
		Int64("points", amount).
		Msg("Points transferred")
	return h.reply(ctx, msg, fmt.Sprintf("✅ Sent %d points to <@%d>. You have %d points left.", amount, toID, left))
}

// HandleTop replies with the guild ranking.
func (h *PointsHandler) HandleTop(ctx context.Context, msg service.Message, _ []string) error {
	standings, err := h.points.Top(ctx, msg.GuildID, TopLimit)
	if err != nil {
		return err
	}
	if len(standings) == 0 {
		return h.reply(ctx, msg, "📊 Nobody has points yet")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Points ranking\n")
	for i, s := range standings {
		fmt.Fprintf(&sb, "%d. <@%d>: %d\n", i+1, s.UserID, s.Points)
	}
	return h.reply(ctx, msg, strings.TrimRight(sb.String(), "\n"))
}

// HandleHelp lists the games and commands.
func (h *PointsHandler) HandleHelp(ctx context.Context, msg service.Message, _ []string) error {
	var sb strings.Builder
	sb.WriteString("🎮 Games\n")
	for _, g := range h.registry.List() {
		fmt.Fprintf(&sb, "%s%s <stake>: %s\n", h.prefix, g.Key(), g.Name())
	}
	sb.WriteString("\n💰 Points\n")
	fmt.Fprintf(&sb, "%spoints\n%ssend @user amount\n%stop", h.prefix, h.prefix, h.prefix)
	return h.reply(ctx, msg, sb.String())
}

func (h *PointsHandler) reply(ctx context.Context, msg service.Message, text string) error {
	if err := h.messenger.Send(ctx, msg.ChannelID, text); err != nil {
		log.Warn().Err(err).Int64("channel_id", msg.ChannelID).Msg("Failed to deliver message")
	}
	return nil
}

// ParseMention accepts <@id>, <@!id> or a bare id.
func ParseMention(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	}
	id, err := strconv.ParseInt(game.NormalizeDigits(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

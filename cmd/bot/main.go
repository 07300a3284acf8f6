// Package main is the entry point for the points game bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"points-game-bot/internal/bot"
	"points-game-bot/internal/config"
	"points-game-bot/internal/engine"
	"points-game-bot/internal/game"
	"points-game-bot/internal/game/coin"
	"points-game-bot/internal/game/hitblow"
	"points-game-bot/internal/game/janken"
	"points-game-bot/internal/game/omikuji"
	"points-game-bot/internal/game/slot"
	"points-game-bot/internal/handler"
	"points-game-bot/internal/ledger"
	"points-game-bot/internal/pkg/db"
	"points-game-bot/internal/pkg/random"
	"points-game-bot/internal/presence"
	"points-game-bot/internal/repository"
	"points-game-bot/internal/service"
)

// CLI holds the command line flags.
type CLI struct {
	Config   string `help:"Directory containing config.yaml" default:"config" type:"path"`
	LogLevel string `help:"Override log.level (debug, info, warn, error)"`
	Driver   string `help:"Override database.driver"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("points-game-bot"),
		kong.Description("Discord bot running points mini-games and voice presence rewards."),
	)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.Driver != "" {
		cfg.Database.Driver = cli.Driver
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("Invalid configuration")
		}
	}
	setLogLevel(cfg.Log.Level)

	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	if err := serve(cfg); err != nil {
		log.Error().Err(err).Msg("Bot stopped with error")
		kctx.Exit(1)
	}
	log.Info().Msg("Bot stopped gracefully")
}

// serve runs the bot until SIGINT or SIGTERM. The signal handler is released
// before serve returns, so main may exit directly.
func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// pointsStore is what the bot needs from a ledger backend.
type pointsStore interface {
	ledger.Ledger
	service.Ranker
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (pointsStore, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory ledger; balances are lost on restart")
		return ledger.NewMemory(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.Migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repository.NewPointsRepository(pool.Pool), pool.Close, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer closeStore()

	rng, err := random.NewSeeded()
	if err != nil {
		return err
	}

	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	messenger := bot.NewChannelMessenger(session)
	clock := quartz.NewReal()

	registry := game.NewRegistry().MustRegister(
		slot.New(),
		omikuji.New(),
		hitblow.New(),
		janken.New(),
		coin.New(),
	)
	log.Info().
		Int("game_count", registry.Count()).
		Strs("games", registry.Commands()).
		Msg("Games registered")

	dispatcher := service.NewDispatcher(registry, store, rng, messenger, clock, service.DispatcherConfig{
		Prefixes: cfg.Games.Prefixes,
		Cooldown: cfg.Games.Cooldown,
		Rules: game.Rules{
			MinStake:     cfg.Games.MinStake,
			CancelWords:  cfg.Games.CancelWords,
			InputTimeout: cfg.Games.InputTimeout,
			GuessTimeout: cfg.Games.GuessTimeout,
			DuelTimeout:  cfg.Games.DuelTimeout,
		},
	})
	points := service.NewPointsService(store, store)
	handler.NewPointsHandler(points, registry, messenger, cfg.Games.Prefixes[0]).Register(dispatcher)

	voice := presence.NewEngine(store, bot.NewStateRoster(session.State), presence.Config{
		AwardInterval:  cfg.Voice.AwardInterval,
		PointsPerAward: cfg.Voice.PointsPerAward,
	})

	eng := engine.New(
		dispatcher,
		service.NewMessageAwarder(store, cfg.Messages.PointsPerMessage),
		voice,
		clock,
		cfg.Voice.SweepInterval,
	)
	gateway := bot.New(session, cfg, bot.NewRouter(eng, clock))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gateway.Run(gctx) })
	g.Go(func() error { return eng.Run(gctx) })
	return g.Wait()
}

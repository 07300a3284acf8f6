package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"m.", "myami.", "my."}, cfg.Games.Prefixes)
	assert.Equal(t, []string{"quit", "exit", "中止", "q"}, cfg.Games.CancelWords)
	assert.Equal(t, int64(100), cfg.Games.MinStake)
	assert.Equal(t, time.Second, cfg.Games.Cooldown)
	assert.Equal(t, 120*time.Second, cfg.Games.InputTimeout)
	assert.Equal(t, 7*time.Minute, cfg.Voice.AwardInterval)
	assert.Equal(t, int64(1), cfg.Voice.PointsPerAward)
	assert.Equal(t, time.Minute, cfg.Voice.SweepInterval)
	assert.Equal(t, int64(1), cfg.Messages.PointsPerMessage)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := `
discord:
  token: file-token
  guilds: [111, 222]
database:
  driver: memory
games:
  min_stake: 50
voice:
  award_interval: 5m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("MESSAGES_POINTS_PER_MESSAGE", "0")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, []int64{111, 222}, cfg.Discord.Guilds)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, int64(50), cfg.Games.MinStake)
	assert.Equal(t, 5*time.Minute, cfg.Voice.AwardInterval)
	assert.Equal(t, int64(0), cfg.Messages.PointsPerMessage)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DRIVER", "sqlite")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "points"}
	assert.Equal(t, "postgres://u:p@db:5433/points?sslmode=disable", d.DSN())

	d.URL = "postgres://elsewhere/x"
	assert.Equal(t, "postgres://elsewhere/x", d.DSN())
}

// TestGuildWhitelistProperty: with a non-empty whitelist a guild is allowed
// iff listed; an empty whitelist allows every guild.
func TestGuildWhitelistProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		guilds := rapid.SliceOfN(rapid.Int64Range(1, 1_000_000), 0, 10).Draw(t, "guilds")
		guildID := rapid.Int64Range(1, 1_000_000).Draw(t, "guildID")

		cfg := &Config{Discord: DiscordConfig{Guilds: guilds}}

		want := len(guilds) == 0
		for _, id := range guilds {
			if id == guildID {
				want = true
			}
		}
		if got := cfg.IsGuildAllowed(guildID); got != want {
			t.Fatalf("IsGuildAllowed(%d) with %v = %v, want %v", guildID, guilds, got, want)
		}
	})
}

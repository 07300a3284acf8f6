// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Games    GamesConfig    `mapstructure:"games"`
	Voice    VoiceConfig    `mapstructure:"voice"`
	Messages MessagesConfig `mapstructure:"messages"`
}

// DiscordConfig holds gateway credentials and the guild whitelist.
type DiscordConfig struct {
	Token  string  `mapstructure:"token"`
	Guilds []int64 `mapstructure:"guilds"`
}

// DatabaseConfig holds ledger storage configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GamesConfig holds game dispatch settings.
type GamesConfig struct {
	Prefixes     []string      `mapstructure:"prefixes"`
	CancelWords  []string      `mapstructure:"cancel_words"`
	MinStake     int64         `mapstructure:"min_stake"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	InputTimeout time.Duration `mapstructure:"input_timeout"`
	GuessTimeout time.Duration `mapstructure:"guess_timeout"`
	DuelTimeout  time.Duration `mapstructure:"duel_timeout"`
}

// VoiceConfig holds presence accrual settings.
type VoiceConfig struct {
	AwardInterval  time.Duration `mapstructure:"award_interval"`
	PointsPerAward int64         `mapstructure:"points_per_award"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// MessagesConfig holds chat activity rewards. Zero disables them.
type MessagesConfig struct {
	PointsPerMessage int64 `mapstructure:"points_per_message"`
}

// DSN returns the PostgreSQL connection string. URL wins when set.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	// Load .env if present (non-fatal if missing)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., DISCORD_TOKEN, DATABASE_HOST, VOICE_AWARD_INTERVAL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")

	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pointsbot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "pointsbot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("log.level", "info")

	// Game defaults
	v.SetDefault("games.prefixes", []string{"m.", "myami.", "my."})
	v.SetDefault("games.cancel_words", []string{"quit", "exit", "中止", "q"})
	v.SetDefault("games.min_stake", 100)
	v.SetDefault("games.cooldown", "1s")
	v.SetDefault("games.input_timeout", "120s")
	v.SetDefault("games.guess_timeout", "120s")
	v.SetDefault("games.duel_timeout", "120s")

	// Voice defaults
	v.SetDefault("voice.award_interval", "7m")
	v.SetDefault("voice.points_per_award", 1)
	v.SetDefault("voice.sweep_interval", "60s")

	v.SetDefault("messages.points_per_message", 1)
}

// Validate checks values the bot cannot run without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if len(c.Games.Prefixes) == 0 {
		return errors.New("at least one command prefix is required")
	}
	if c.Games.MinStake <= 0 {
		return fmt.Errorf("games.min_stake must be positive, got %d", c.Games.MinStake)
	}
	if c.Voice.AwardInterval <= 0 {
		return fmt.Errorf("voice.award_interval must be positive, got %s", c.Voice.AwardInterval)
	}
	if c.Voice.SweepInterval <= 0 {
		return fmt.Errorf("voice.sweep_interval must be positive, got %s", c.Voice.SweepInterval)
	}
	if c.Messages.PointsPerMessage < 0 {
		return fmt.Errorf("messages.points_per_message must not be negative, got %d", c.Messages.PointsPerMessage)
	}
	return nil
}

// IsGuildAllowed checks if a guild ID is in the whitelist.
func (c *Config) IsGuildAllowed(guildID int64) bool {
	// Empty whitelist means all guilds are allowed
	if len(c.Discord.Guilds) == 0 {
		return true
	}
	for _, id := range c.Discord.Guilds {
		if id == guildID {
			return true
		}
	}
	return false
}

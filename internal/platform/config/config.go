// Package config loads process configuration from env and an optional .env
// file using Viper. Keep infra values here and pass typed config into
// builders.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is centralized process configuration for the api and worker binaries.
type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MetricsPort string `mapstructure:"METRICS_PORT"`
	// PostgresDSN is the URL-form DSN; empty selects the in-memory store.
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	// AutoMigrate runs the embedded migrations at API start.
	AutoMigrate bool `mapstructure:"AUTO_MIGRATE"`
	// KafkaBrokers is a comma-separated broker list.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`

	// VestingPeriod is the cooldown between credential acquisition and
	// active voting rights (e.g. "72h").
	VestingPeriod string `mapstructure:"VESTING_PERIOD"`
	VoteMinPoints int64  `mapstructure:"VOTE_MIN_POINTS"`
	VoteMaxPoints int64  `mapstructure:"VOTE_MAX_POINTS"`
	// MaxParticipants caps admissions per ceremony.
	MaxParticipants int `mapstructure:"MAX_PARTICIPANTS"`
	// MaxFeatureSessions caps session indexes per ceremony.
	MaxFeatureSessions int `mapstructure:"MAX_FEATURE_SESSIONS"`
	// OpenCeremonyStart allows any identity to start a ceremony; when false
	// only administrators may.
	OpenCeremonyStart bool `mapstructure:"OPEN_CEREMONY_START"`
	// AdminIdentities is a comma-separated administrator id list.
	AdminIdentities string `mapstructure:"ADMIN_IDENTITIES"`

	// WorkerPollInterval is the outbox relay cadence (e.g. "2s").
	WorkerPollInterval string `mapstructure:"WORKER_POLL_INTERVAL"`
	OutboxBatchSize    int    `mapstructure:"OUTBOX_BATCH_SIZE"`
}

// Load reads .env (if present), then builds Config from the environment.
// Missing .env is ignored; env vars override .env.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("SERVICE_NAME", "agora-ceremony-engine")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("VESTING_PERIOD", "72h")
	v.SetDefault("VOTE_MIN_POINTS", 1)
	v.SetDefault("VOTE_MAX_POINTS", 21)
	v.SetDefault("MAX_PARTICIPANTS", 256)
	v.SetDefault("MAX_FEATURE_SESSIONS", 64)
	v.SetDefault("OPEN_CEREMONY_START", true)
	v.SetDefault("ADMIN_IDENTITIES", "")
	v.SetDefault("WORKER_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.ServiceName == "" {
		return Config{}, errors.New("config: SERVICE_NAME must be set")
	}
	if cfg.VoteMinPoints > cfg.VoteMaxPoints {
		return Config{}, errors.New("config: VOTE_MIN_POINTS must not exceed VOTE_MAX_POINTS")
	}

	return cfg, nil
}

// VestingDuration parses VestingPeriod. Returns 72h if unset or invalid.
func (c Config) VestingDuration() time.Duration {
	d, err := time.ParseDuration(c.VestingPeriod)
	if err != nil || d <= 0 {
		return 72 * time.Hour
	}
	return d
}

// PollInterval parses WorkerPollInterval. Returns 2s if unset or invalid.
func (c Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.WorkerPollInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// KafkaBrokerList returns broker addresses from the comma-separated config.
func (c Config) KafkaBrokerList() []string {
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{"localhost:9092"}
	}
	return out
}

// AdminIdentityList returns administrator ids from the comma-separated config.
func (c Config) AdminIdentityList() []string {
	parts := strings.Split(c.AdminIdentities, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

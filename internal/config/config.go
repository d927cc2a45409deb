// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Every field carries a koanf tag (file/env key) and a validate tag.
//   - Errors returned from Load and Validate wrap this package's sentinels.
package config

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/okian/faceoff/internal/domain/elo"
)

// Storage drivers accepted by StorageDriver.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// StorageDriver selects the repository backend.
	StorageDriver string `koanf:"storage_driver" validate:"oneof=sqlite memory"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=StorageDriver sqlite"`

	// DefaultRating is assigned to newly admitted items. Any finite value,
	// negative included, is accepted.
	DefaultRating float64 `koanf:"default_rating"`

	// PairPoolLimit is how many least-voted items a pair is drawn from.
	PairPoolLimit int `koanf:"pair_pool_limit" validate:"gte=2"`

	// DedupeSize bounds the ballot id tracker.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=1"`

	// StandingsCron schedules the standings report; empty disables it.
	StandingsCron string `koanf:"standings_cron"`

	// StandingsTop is how many leaders the standings report logs.
	StandingsTop int `koanf:"standings_top" validate:"gte=1,lte=100"`
}

// New creates a Config populated with defaults. Context is accepted first to
// keep the package signature stable; it is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		StorageDriver: DriverSQLite,
		SQLitePath:    "faceoff.db",
		DefaultRating: 1400,
		PairPoolLimit: 10,
		DedupeSize:    100_000,
		StandingsCron: "@every 1m",
		StandingsTop:  3,
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !elo.Finite(c.DefaultRating) {
		return fmt.Errorf("%w: DefaultRating must be finite, got %v", ErrInvalidConfig, c.DefaultRating)
	}
	return nil
}

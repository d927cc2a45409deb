// Package simulate drives the ranking core with a crowd of simulated voters
// who judge items by a hidden quality, then checks that the resulting
// ratings obey the bookkeeping invariants and recover the hidden order.
package simulate

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ErrInvalidConfig is returned when a Config fails validation.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds configuration for a simulation run.
type Config struct {
	Items         int           `validate:"gte=2"`               // items seeded into the pool
	Owners        int           `validate:"gte=1"`               // distinct owners items are spread over
	Voters        int           `validate:"gte=1"`               // concurrent voter workers
	Ballots       int           `validate:"gte=1"`               // distinct ballots issued
	ReplayRate    float64       `validate:"gte=0,lte=1"`         // share of ballots sent twice
	Noise         float64       `validate:"gt=0"`                // judge temperature; higher is noisier
	PoolLimit     int           `validate:"gte=2"`               // least-voted pool size
	QueueCapacity int           `validate:"gte=1"`               // ballot queue bound
	TopN          int           `validate:"gte=1"`               // leaders logged at the end
	MinSpearman   float64       `validate:"gte=-1,lte=1"`        // fail below this rank correlation
	Backend       string        `validate:"oneof=memory sqlite"` // storage backend
	SQLitePath    string        `validate:"required_if=Backend sqlite"`
	Seed          uint64        // 0 picks a random seed
	Timeout       time.Duration `validate:"gt=0"`
}

// DefaultConfig returns a configuration that finishes in a few seconds.
func DefaultConfig() Config {
	return Config{
		Items:         50,
		Owners:        5,
		Voters:        8,
		Ballots:       5_000,
		ReplayRate:    0.05,
		Noise:         1.0,
		PoolLimit:     10,
		QueueCapacity: 1_024,
		TopN:          10,
		MinSpearman:   0.5,
		Backend:       BackendMemory,
		Timeout:       5 * time.Minute,
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Stats holds what a run observed.
type Stats struct {
	ItemsSeeded     int
	BallotsIssued   int
	BallotsReplayed int
	BallotsCast     int64
	Duplicates      int64
	Failed          int64
	Spearman        float64
	RatingSum       float64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

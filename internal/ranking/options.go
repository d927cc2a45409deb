package ranking

import (
	"math/rand/v2"
	"sync"

	"github.com/okian/faceoff/internal/domain/elo"
	"github.com/okian/faceoff/pkg/logger"
)

const defaultPoolLimit = 10

type settings struct {
	defaultRating float64
	poolLimit     int
	intN          func(n int) int
	log           logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		defaultRating: elo.DefaultRating,
		poolLimit:     defaultPoolLimit,
		intN:          rand.IntN,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a RatingStore or PairSelector.
type Option func(*settings)

// WithDefaultRating sets the rating of newly admitted items and the value
// GetRating reports for unknown ids. Non-finite values are ignored.
func WithDefaultRating(r float64) Option {
	return func(s *settings) {
		if elo.Finite(r) {
			s.defaultRating = r
		}
	}
}

// WithPoolLimit sets the pool size SelectPair uses when called with a
// non-positive limit.
func WithPoolLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.poolLimit = n
		}
	}
}

// WithRand makes pair selection draw from r. r is guarded by a mutex, so a
// seeded source gives reproducible selections even under concurrency.
func WithRand(r *rand.Rand) Option {
	return func(s *settings) {
		if r == nil {
			return
		}
		var mu sync.Mutex
		s.intN = func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return r.IntN(n)
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// InsertOption configures a single InsertItem call.
type InsertOption func(*insertParams)

type insertParams struct {
	rating   *float64
	owner    string
	filename string
}

// WithInitialRating admits the item at r instead of the default rating.
func WithInitialRating(r float64) InsertOption {
	return func(p *insertParams) { p.rating = &r }
}

// WithOwner records the submitting user.
func WithOwner(owner string) InsertOption {
	return func(p *insertParams) { p.owner = owner }
}

// WithFilename records the item's file name.
func WithFilename(name string) InsertOption {
	return func(p *insertParams) { p.filename = name }
}

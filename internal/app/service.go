// Package service ties the ranking core to admission, idempotent ballots and
// standings. It is the one place callers outside the core talk to.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/faceoff/internal/domain/dedupe"
	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/internal/ranking"
	"github.com/okian/faceoff/pkg/logger"
	"github.com/okian/faceoff/pkg/metrics"
)

const defaultDedupeSize = 100_000

// Receipt describes what happened to a ballot.
type Receipt struct {
	// Duplicate is true when the ballot id had already been applied.
	// Winner and Loser are zero in that case. A replay that arrives while the
	// first attempt is still running waits for it and is only a duplicate if
	// that attempt succeeded.
	Duplicate bool       `json:"duplicate"`
	Winner    model.Item `json:"winner"`
	Loser     model.Item `json:"loser"`
}

// Service orchestrates the rating store, the pair selector and ballot
// deduplication.
type Service struct {
	ratings  *ranking.RatingStore
	selector *ranking.PairSelector
	deduper  dedupe.Deduper

	// mu orders dedupe checks against inflight bookkeeping.
	mu       sync.Mutex
	inflight map[string]*pendingBallot

	poolLimit  int
	dedupeSize int
	now        func() time.Time
	startedAt  time.Time

	ballots    atomic.Int64
	duplicates atomic.Int64
	admitted   atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPoolLimit sets the least-voted pool size used by NextPair.
// Non-positive values leave the selector default in place.
func WithPoolLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.poolLimit = n
		}
	}
}

// WithDedupeSize sets how many ballot ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDeduper replaces the ballot tracker.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over an existing rating store and selector.
func New(ratings *ranking.RatingStore, selector *ranking.PairSelector, opts ...Option) *Service {
	s := &Service{
		ratings:    ratings,
		selector:   selector,
		dedupeSize: defaultDedupeSize,
		inflight:   make(map[string]*pendingBallot),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.logger = s.logger.Named("service")
	s.startedAt = s.now()
	return s
}

// Admit adds a new item for owner under a fresh UUID.
func (s *Service) Admit(ctx context.Context, owner, filename string) (model.Item, error) {
	id := uuid.NewString()
	it, err := s.ratings.InsertItem(ctx, id, ranking.WithOwner(owner), ranking.WithFilename(filename))
	if err != nil {
		return model.Item{}, fmt.Errorf("admit %q: %w", filename, err)
	}
	s.admitted.Add(1)
	s.logger.Info(ctx, "item admitted",
		logger.String("id", it.ID),
		logger.String("owner", owner),
		logger.String("filename", filename),
	)
	return it, nil
}

// NextPair returns two distinct items to compare.
func (s *Service) NextPair(ctx context.Context) (model.Item, model.Item, error) {
	return s.selector.SelectPair(ctx, s.poolLimit)
}

// pendingBallot is a ballot whose outcome is being applied. err is set
// before done is closed.
type pendingBallot struct {
	done chan struct{}
	err  error
}

// CastBallot applies "winnerID beats loserID" once per ballotID. A repeated
// ballotID returns a duplicate receipt and leaves ratings alone. When the
// outcome cannot be applied the ballot is forgotten so it can be retried, and
// replays that were waiting on it receive the same error.
func (s *Service) CastBallot(ctx context.Context, ballotID, winnerID, loserID string) (Receipt, error) {
	if ballotID == "" {
		return Receipt{}, fmt.Errorf("cast ballot: %w: empty ballot id", ranking.ErrInvalidArgument)
	}

	s.mu.Lock()
	seen := s.deduper.SeenAndRecord(ctx, ballotID)
	p, pending := s.inflight[ballotID]
	owner := !seen && !pending
	if owner {
		p = &pendingBallot{done: make(chan struct{})}
		s.inflight[ballotID] = p
	}
	s.mu.Unlock()

	if !owner {
		return s.replay(ctx, ballotID, p)
	}

	w, l, err := s.ratings.ApplyOutcome(ctx, winnerID, loserID)

	s.mu.Lock()
	delete(s.inflight, ballotID)
	if err != nil {
		s.deduper.Unrecord(ctx, ballotID)
	}
	s.mu.Unlock()
	p.err = err
	close(p.done)

	if err != nil {
		return Receipt{}, fmt.Errorf("cast ballot %s: %w", ballotID, err)
	}
	s.ballots.Add(1)
	return Receipt{Winner: w, Loser: l}, nil
}

// replay answers a ballot id that was already claimed. p is nil when the
// first attempt has finished.
func (s *Service) replay(ctx context.Context, ballotID string, p *pendingBallot) (Receipt, error) {
	if p != nil {
		select {
		case <-p.done:
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("cast ballot %s: %w", ballotID, ctx.Err())
		}
		if p.err != nil {
			return Receipt{}, fmt.Errorf("cast ballot %s: first attempt failed: %w", ballotID, p.err)
		}
	}
	s.duplicates.Add(1)
	metrics.RecordBallotDuplicate()
	s.logger.Debug(ctx, "duplicate ballot", logger.String("ballot", ballotID))
	return Receipt{Duplicate: true}, nil
}

// Leaderboard returns the n best items with their ranks.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]model.Standing, error) {
	items, err := s.ratings.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]model.Standing, len(items))
	for i, it := range items {
		out[i] = model.Standing{Item: it, Rank: i + 1}
	}
	return out, nil
}

// Standing returns one item and its rank.
func (s *Service) Standing(ctx context.Context, id string) (model.Standing, error) {
	return s.ratings.Standing(ctx, id)
}

// Gallery returns every item submitted by owner, best first.
func (s *Service) Gallery(ctx context.Context, owner string) ([]model.Standing, error) {
	return s.ratings.ItemsByOwner(ctx, owner)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	stats := map[string]any{
		"ballotsApplied":   s.ballots.Load(),
		"ballotsDuplicate": s.duplicates.Load(),
		"itemsAdmitted":    s.admitted.Load(),
		"dedupeTracked":    s.deduper.Size(),
		"dedupeCapacity":   s.dedupeSize,
		"poolLimit":        s.poolLimit,
		"defaultRating":    s.ratings.DefaultRating(),
		"uptimeSeconds":    int64(s.now().Sub(s.startedAt).Seconds()),
	}

	n, err := s.ratings.Count(context.Background())
	if err != nil {
		stats["itemsError"] = err.Error()
		return stats
	}
	stats["items"] = n
	metrics.UpdateItemsTotal(n)
	return stats
}

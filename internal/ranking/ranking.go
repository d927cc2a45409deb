// Package ranking maintains Elo ratings for a pool of items from pairwise
// outcomes and picks which pair to compare next.
//
// RatingStore owns rating updates and rating-ordered reads. PairSelector
// chooses the next pair from the least-voted items. Both sit on a
// repository.Store, which provides durability and the atomic pair update.
package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/faceoff/internal/adapters/repository"
	"github.com/okian/faceoff/internal/domain/elo"
	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/logger"
	"github.com/okian/faceoff/pkg/metrics"
)

// RatingStore applies outcomes to item ratings.
type RatingStore struct {
	repo          repository.Store
	defaultRating float64
	log           logger.Logger
}

// NewRatingStore creates a RatingStore over repo.
func NewRatingStore(repo repository.Store, opts ...Option) *RatingStore {
	s := newSettings(opts)
	return &RatingStore{
		repo:          repo,
		defaultRating: s.defaultRating,
		log:           s.log.Named("ratings"),
	}
}

// DefaultRating is the rating assigned to new items.
func (s *RatingStore) DefaultRating() float64 {
	return s.defaultRating
}

// InsertItem admits id with zero counters and the default rating, unless
// WithInitialRating says otherwise.
func (s *RatingStore) InsertItem(ctx context.Context, id string, opts ...InsertOption) (model.Item, error) {
	p := insertParams{}
	for _, opt := range opts {
		opt(&p)
	}
	rating := s.defaultRating
	if p.rating != nil {
		rating = *p.rating
	}
	if id == "" {
		return model.Item{}, fmt.Errorf("insert item: %w: empty id", ErrInvalidArgument)
	}
	if !elo.Finite(rating) {
		return model.Item{}, fmt.Errorf("insert item %s: %w: rating %v", id, ErrInvalidArgument, rating)
	}

	it, err := s.repo.Insert(ctx, model.Item{
		ID:       id,
		Owner:    p.owner,
		Filename: p.filename,
		Rating:   rating,
	})
	if err != nil {
		return model.Item{}, mapRepoErr("insert item "+id, err)
	}
	metrics.RecordItemAdmitted()
	s.log.Debug(ctx, "item admitted", logger.String("id", id), logger.Float64("rating", rating))
	return it, nil
}

// GetRating returns the current rating of id. An unknown id yields the
// default rating, not an error; the only error is ErrStorageUnavailable.
func (s *RatingStore) GetRating(ctx context.Context, id string) (float64, error) {
	it, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		return it.Rating, nil
	case errors.Is(err, repository.ErrNotFound):
		s.log.Warn(ctx, "rating requested for unknown item", logger.String("id", id))
		return s.defaultRating, nil
	default:
		return 0, fmt.Errorf("get rating %s: %w: %w", id, ErrStorageUnavailable, err)
	}
}

// ApplyOutcome records that winnerID beat loserID and returns both items as
// updated. Both items change or neither does.
func (s *RatingStore) ApplyOutcome(ctx context.Context, winnerID, loserID string) (model.Item, model.Item, error) {
	w, l, err := s.applyOutcome(ctx, winnerID, loserID)
	if err != nil {
		metrics.RecordOutcomeError(errorKind(err))
		return model.Item{}, model.Item{}, err
	}
	return w, l, nil
}

func (s *RatingStore) applyOutcome(ctx context.Context, winnerID, loserID string) (model.Item, model.Item, error) {
	if !(model.Outcome{Winner: winnerID, Loser: loserID}).Valid() {
		return model.Item{}, model.Item{}, fmt.Errorf("apply outcome %q over %q: %w", winnerID, loserID, ErrInvalidArgument)
	}

	var before float64
	w, l, err := s.repo.UpdatePair(ctx, winnerID, loserID, func(w, l model.Item) (model.Item, model.Item) {
		before = w.Rating
		w.Rating, l.Rating = elo.Update(w.Rating, l.Rating)
		w.Wins++
		w.TotalVotes++
		l.Losses++
		l.TotalVotes++
		return w, l
	})
	if err != nil {
		return model.Item{}, model.Item{}, mapRepoErr("apply outcome", err)
	}

	metrics.RecordOutcomeApplied(w.Rating - before)
	s.log.Debug(ctx, "outcome applied",
		logger.String("winner", w.ID),
		logger.Float64("winner_rating", w.Rating),
		logger.String("loser", l.ID),
		logger.Float64("loser_rating", l.Rating),
	)
	return w, l, nil
}

// TopN returns up to n items by rating desc, ties by admission order.
func (s *RatingStore) TopN(ctx context.Context, n int) ([]model.Item, error) {
	if n < 1 {
		return nil, fmt.Errorf("top n: %w: n=%d", ErrInvalidArgument, n)
	}
	items, err := s.repo.TopN(ctx, n)
	if err != nil {
		return nil, mapRepoErr("top n", err)
	}
	return items, nil
}

// Get returns one item.
func (s *RatingStore) Get(ctx context.Context, id string) (model.Item, error) {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Item{}, mapRepoErr("get "+id, err)
	}
	return it, nil
}

// Standing returns an item with its 1-based rank.
func (s *RatingStore) Standing(ctx context.Context, id string) (model.Standing, error) {
	st, err := s.repo.Rank(ctx, id)
	if err != nil {
		return model.Standing{}, mapRepoErr("standing "+id, err)
	}
	return st, nil
}

// ItemsByOwner returns an owner's items with ranks, best first.
func (s *RatingStore) ItemsByOwner(ctx context.Context, owner string) ([]model.Standing, error) {
	out, err := s.repo.ByOwner(ctx, owner)
	if err != nil {
		return nil, mapRepoErr("items by owner", err)
	}
	return out, nil
}

// Count returns the pool size.
func (s *RatingStore) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, mapRepoErr("count", err)
	}
	return n, nil
}

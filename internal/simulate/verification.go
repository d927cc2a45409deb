package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/logger"
)

// ErrInvariant is returned when the final state breaks a bookkeeping rule.
var ErrInvariant = errors.New("invariant violated")

// ErrPoorRanking is returned when ratings track hidden quality too weakly.
var ErrPoorRanking = errors.New("ranking does not recover hidden quality")

const ratingSumTolerance = 1e-6

// verifyResults checks every item's counters, vote conservation, rating
// conservation and leaderboard order, then scores how well the ratings
// recover the hidden quality.
func verifyResults(ctx context.Context, items []model.Item, quality map[string]float64, defaultRating float64, cfg *Config, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results", logger.Int("items", len(items)))

	if len(items) != len(quality) {
		return fmt.Errorf("%w: store has %d items, seeded %d", ErrInvariant, len(items), len(quality))
	}

	var wins, losses int64
	ratings := make([]float64, len(items))
	hidden := make([]float64, len(items))
	for i, it := range items {
		if it.TotalVotes != it.Wins+it.Losses {
			return fmt.Errorf("%w: %s has %d votes but %d wins and %d losses",
				ErrInvariant, it.ID, it.TotalVotes, it.Wins, it.Losses)
		}
		if i > 0 && it.Rating > items[i-1].Rating {
			return fmt.Errorf("%w: leaderboard out of order at %d", ErrInvariant, i)
		}
		wins += it.Wins
		losses += it.Losses
		ratings[i] = it.Rating
		hidden[i] = quality[it.ID]
	}
	if wins != losses || wins != stats.BallotsCast {
		return fmt.Errorf("%w: %d wins, %d losses, %d ballots cast", ErrInvariant, wins, losses, stats.BallotsCast)
	}
	sum := floats.Sum(ratings)
	want := defaultRating * float64(len(items))
	if math.Abs(sum-want) > ratingSumTolerance*math.Abs(want) {
		return fmt.Errorf("%w: rating sum %.6f, want %.6f", ErrInvariant, sum, want)
	}
	stats.RatingSum = sum

	stats.Spearman = spearman(ratings, hidden)

	displayTopItems(ctx, items, quality, cfg.TopN)

	if stats.Spearman < cfg.MinSpearman {
		return fmt.Errorf("%w: spearman %.3f below %.3f", ErrPoorRanking, stats.Spearman, cfg.MinSpearman)
	}
	logger.Get().Info(ctx, "verification passed", logger.Float64("spearman", stats.Spearman))
	return nil
}

// spearman returns the rank correlation of x and y, averaging tied ranks.
// It returns 0 when either side is constant.
func spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(ranks(x), ranks(y), nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// ranks assigns 1-based ascending ranks; ties share their mean rank.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		mean := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = mean
		}
		i = j + 1
	}
	return out
}

// displayTopItems logs the leaders next to their hidden quality.
func displayTopItems(ctx context.Context, items []model.Item, quality map[string]float64, topN int) {
	topN = min(topN, len(items))
	for i := range topN {
		it := items[i]
		logger.Get().Info(ctx, "leader",
			logger.Int("rank", i+1),
			logger.String("id", it.ID),
			logger.String("owner", it.Owner),
			logger.Float64("rating", it.Rating),
			logger.Float64("quality", quality[it.ID]),
			logger.Int64("votes", it.TotalVotes),
		)
	}
}

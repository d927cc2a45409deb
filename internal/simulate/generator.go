package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/logger"
)

const seedConcurrency = 8

// Quality tiers, drawn with equal weight. Most items are average; a few are
// clearly better or worse.
var qualityTiers = []struct{ min, span float64 }{
	{3.0, 4.0}, // average
	{3.0, 4.0}, // average
	{7.0, 2.0}, // strong
	{0.1, 2.9}, // weak
	{9.0, 1.0}, // elite
	{0.1, 9.9}, // anywhere
}

// drawQuality returns a hidden quality score in [0.1, 10).
func drawQuality(rng *rand.Rand) float64 {
	t := qualityTiers[rng.IntN(len(qualityTiers))]
	return t.min + rng.Float64()*t.span
}

// Admitter is the admission side of the service.
type Admitter interface {
	Admit(ctx context.Context, owner, filename string) (model.Item, error)
}

// seedItems admits cfg.Items items concurrently and returns their hidden
// qualities keyed by the ids the service assigned.
func seedItems(ctx context.Context, svc Admitter, cfg *Config, rng *rand.Rand) (map[string]float64, error) {
	logger.Get().Info(ctx, "seeding items", logger.Int("items", cfg.Items), logger.Int("owners", cfg.Owners))

	qualities := make([]float64, cfg.Items)
	for i := range qualities {
		qualities[i] = drawQuality(rng)
	}

	ids := make([]string, cfg.Items)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for i := range cfg.Items {
		g.Go(func() error {
			owner := "owner-" + strconv.Itoa(i%cfg.Owners)
			it, err := svc.Admit(gctx, owner, "photo-"+strconv.Itoa(i)+".jpg")
			if err != nil {
				return fmt.Errorf("seed item %d: %w", i, err)
			}
			ids[i] = it.ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quality := make(map[string]float64, cfg.Items)
	for i, id := range ids {
		quality[id] = qualities[i]
	}
	return quality, nil
}

// ballotPlan is the ordered list of ballots a run sends, replays included.
type ballotPlan struct {
	ballots  []model.Ballot
	replayed int
}

// planBallots issues cfg.Ballots fresh ballots and re-sends a ReplayRate
// share of them later in the stream.
func planBallots(cfg *Config, rng *rand.Rand, now time.Time) ballotPlan {
	p := ballotPlan{ballots: make([]model.Ballot, 0, cfg.Ballots+int(float64(cfg.Ballots)*cfg.ReplayRate)+1)}
	for i := range cfg.Ballots {
		b := model.Ballot{
			ID:       uuid.NewString(),
			Voter:    "voter-" + strconv.Itoa(i%cfg.Voters),
			IssuedAt: now,
		}
		p.ballots = append(p.ballots, b)
		if rng.Float64() < cfg.ReplayRate {
			p.ballots = append(p.ballots, p.ballots[rng.IntN(len(p.ballots))])
			p.replayed++
		}
	}
	return p
}

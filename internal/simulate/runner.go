package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/faceoff/internal/adapters/mq/queue"
	"github.com/okian/faceoff/internal/adapters/mq/worker"
	"github.com/okian/faceoff/internal/adapters/repository"
	service "github.com/okian/faceoff/internal/app"
	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/internal/ranking"
	"github.com/okian/faceoff/pkg/logger"
)

const enqueueBackoff = time.Millisecond

// casterAdapter adapts service.Service to worker.Caster.
type casterAdapter struct {
	svc *service.Service
}

func (a *casterAdapter) CastBallot(ctx context.Context, ballotID, winnerID, loserID string) (bool, error) {
	r, err := a.svc.CastBallot(ctx, ballotID, winnerID, loserID)
	if err != nil {
		return false, err
	}
	return r.Duplicate, nil
}

// Run seeds a pool, lets cfg.Voters simulated voters work through the
// ballots concurrently, then verifies the final state.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	stats := &Stats{StartTime: time.Now()}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting simulation",
		logger.String("backend", cfg.Backend),
		logger.Int("items", cfg.Items),
		logger.Int("voters", cfg.Voters),
		logger.Int("ballots", cfg.Ballots),
		logger.Float64("replayRate", cfg.ReplayRate),
		logger.Float64("noise", cfg.Noise),
		logger.Any("seed", seed),
	)

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error(context.Background(), "close store", logger.Error(err))
		}
	}()

	// Independent streams so judging and pair selection don't perturb each other.
	genRng := rand.New(rand.NewPCG(seed, 1))
	selRng := rand.New(rand.NewPCG(seed, 2))
	judgeRng := rand.New(rand.NewPCG(seed, 3))

	rs := ranking.NewRatingStore(repo, ranking.WithLogger(log))
	sel := ranking.NewPairSelector(repo, ranking.WithPoolLimit(cfg.PoolLimit), ranking.WithRand(selRng), ranking.WithLogger(log))
	svc := service.New(rs, sel,
		service.WithPoolLimit(cfg.PoolLimit),
		service.WithDedupeSize(cfg.Ballots),
		service.WithLogger(log),
	)

	quality, err := seedItems(ctx, svc, cfg, genRng)
	if err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}
	stats.ItemsSeeded = len(quality)

	plan := planBallots(cfg, genRng, time.Now())
	stats.BallotsIssued = cfg.Ballots
	stats.BallotsReplayed = plan.replayed

	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueCapacity))
	pool := worker.NewPool(cfg.Voters, q, svc, NewJudge(quality, cfg.Noise, judgeRng), &casterAdapter{svc: svc},
		worker.WithLogger(log))
	pool.Start(ctx)

	if err := submitBallots(ctx, q, plan.ballots); err != nil {
		_ = q.Close()
		return nil, fmt.Errorf("ballot submission failed: %w", err)
	}
	_ = q.Close()
	if err := pool.Wait(ctx); err != nil {
		return nil, err
	}

	c := pool.Counters()
	stats.BallotsCast = c.Cast.Load()
	stats.Duplicates = c.Duplicates.Load()
	stats.Failed = c.Failed.Load()

	items, err := rs.TopN(ctx, cfg.Items)
	if err != nil {
		return nil, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if err := verifyResults(ctx, items, quality, rs.DefaultRating(), cfg, stats); err != nil {
		displayFinalStats(ctx, stats)
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	displayFinalStats(ctx, stats)
	return stats, nil
}

func openStore(ctx context.Context, cfg *Config) (repository.Store, error) {
	switch cfg.Backend {
	case BackendSQLite:
		s, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	default:
		return repository.NewTreapStore(), nil
	}
}

// submitBallots feeds the queue, backing off while it is full.
func submitBallots(ctx context.Context, q queue.Queue, ballots []model.Ballot) error {
	for _, b := range ballots {
		for {
			err := q.Enqueue(ctx, b)
			if err == nil {
				break
			}
			if !errors.Is(err, queue.ErrFull) {
				return fmt.Errorf("enqueue %s: %w", b.ID, err)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("enqueue %s: %w", b.ID, ctx.Err())
			case <-time.After(enqueueBackoff):
			}
		}
	}
	return nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.BallotsCast) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("itemsSeeded", stats.ItemsSeeded),
		logger.Int("ballotsIssued", stats.BallotsIssued),
		logger.Int("ballotsReplayed", stats.BallotsReplayed),
		logger.Int64("ballotsCast", stats.BallotsCast),
		logger.Int64("duplicates", stats.Duplicates),
		logger.Int64("failed", stats.Failed),
		logger.Float64("spearman", stats.Spearman),
		logger.Float64("ratingSum", stats.RatingSum),
		logger.Duration("duration", stats.Duration),
		logger.Float64("ballotsPerSecond", perSecond),
	)
}

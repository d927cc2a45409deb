package ranking

import (
	"context"
	"fmt"

	"github.com/okian/faceoff/internal/adapters/repository"
	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/logger"
	"github.com/okian/faceoff/pkg/metrics"
)

// PairSelector picks the next pair to compare. It favours items with the
// fewest votes so every item converges at a similar rate. Selection is a
// pure read and may repeat a pair.
type PairSelector struct {
	repo      repository.Store
	poolLimit int
	intN      func(n int) int
	log       logger.Logger
}

// NewPairSelector creates a PairSelector over repo.
func NewPairSelector(repo repository.Store, opts ...Option) *PairSelector {
	s := newSettings(opts)
	return &PairSelector{
		repo:      repo,
		poolLimit: s.poolLimit,
		intN:      s.intN,
		log:       s.log.Named("selector"),
	}
}

// SelectPair draws two distinct items uniformly from the poolLimit
// least-voted items. poolLimit <= 0 uses the configured default; anything
// below 2 is raised to 2.
func (p *PairSelector) SelectPair(ctx context.Context, poolLimit int) (model.Item, model.Item, error) {
	if poolLimit <= 0 {
		poolLimit = p.poolLimit
	}
	poolLimit = max(poolLimit, 2)

	pool, err := p.repo.LeastVoted(ctx, poolLimit)
	if err != nil {
		return model.Item{}, model.Item{}, mapRepoErr("select pair", err)
	}
	if len(pool) < 2 {
		return model.Item{}, model.Item{}, fmt.Errorf("select pair: %w: pool has %d", ErrInsufficientItems, len(pool))
	}

	i := p.intN(len(pool))
	j := p.intN(len(pool) - 1)
	if j >= i {
		j++
	}

	metrics.RecordPairSelected(len(pool))
	p.log.Debug(ctx, "pair selected",
		logger.String("a", pool[i].ID),
		logger.String("b", pool[j].ID),
		logger.Int("pool", len(pool)),
	)
	return pool[i], pool[j], nil
}

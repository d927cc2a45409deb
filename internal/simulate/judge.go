package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/okian/faceoff/internal/domain/model"
)

// Judge picks winners with probability given by a logistic curve over the
// hidden quality gap, so better items usually but not always win.
type Judge struct {
	quality map[string]float64
	noise   float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewJudge builds a judge over a fixed quality table.
func NewJudge(quality map[string]float64, noise float64, rng *rand.Rand) *Judge {
	return &Judge{quality: quality, noise: noise, rng: rng}
}

// WinProbability is the chance that an item of quality qa beats one of qb.
func (j *Judge) WinProbability(qa, qb float64) float64 {
	return 1 / (1 + math.Exp(-(qa-qb)/j.noise))
}

// Judge implements worker.Judge.
func (j *Judge) Judge(_ context.Context, _ model.Ballot, a, b model.Item) (model.Item, model.Item, error) {
	qa, ok := j.quality[a.ID]
	if !ok {
		return model.Item{}, model.Item{}, fmt.Errorf("judge: no quality for %s", a.ID)
	}
	qb, ok := j.quality[b.ID]
	if !ok {
		return model.Item{}, model.Item{}, fmt.Errorf("judge: no quality for %s", b.ID)
	}

	j.mu.Lock()
	roll := j.rng.Float64()
	j.mu.Unlock()

	if roll < j.WinProbability(qa, qb) {
		return a, b, nil
	}
	return b, a, nil
}

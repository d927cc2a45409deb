package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/faceoff/internal/domain/model"
	"github.com/okian/faceoff/pkg/metrics"
)

// TreapStore is an in-memory Store. Items live in a map keyed by id and are
// indexed twice by treaps:
//
//	byRating: rating DESC, seq ASC  (TopN, Rank)
//	byVotes:  total_votes ASC, seq ASC  (LeastVoted)
//
// One RWMutex guards everything. UpdatePair holds the write lock across
// read-compute-write, so concurrent outcomes serialize and none are lost.
type TreapStore struct {
	mu       sync.RWMutex
	byID     map[string]model.Item
	byRating index
	byVotes  index
	nextSeq  uint64
	now      func() time.Time
}

// NewTreapStore constructs an empty in-memory store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:     make(map[string]model.Item),
		byRating: index{desc: true},
		byVotes:  index{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func ratingKey(it model.Item) key { return key{primary: it.Rating, seq: it.Seq} }
func votesKey(it model.Item) key  { return key{primary: float64(it.TotalVotes), seq: it.Seq} }

func observeUpdate(start time.Time, backend string) {
	metrics.RecordRepositoryUpdateLatency(backend, float64(time.Since(start).Microseconds())/1000)
}

func observeQuery(start time.Time, backend string) {
	metrics.RecordRepositoryQueryLatency(backend, float64(time.Since(start).Microseconds())/1000)
}

// Insert implements Store.Insert in O(log n) expected time.
func (s *TreapStore) Insert(ctx context.Context, item model.Item) (model.Item, error) {
	defer observeUpdate(time.Now(), BackendMemory)
	if err := ctx.Err(); err != nil {
		return model.Item{}, unavailable("insert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[item.ID]; ok {
		return model.Item{}, ErrAlreadyExists
	}
	s.nextSeq++
	item.Seq = s.nextSeq
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}
	s.byID[item.ID] = item
	s.byRating.insert(ratingKey(item), item.ID)
	s.byVotes.insert(votesKey(item), item.ID)
	return item, nil
}

// Get implements Store.Get.
func (s *TreapStore) Get(ctx context.Context, id string) (model.Item, error) {
	defer observeQuery(time.Now(), BackendMemory)
	if err := ctx.Err(); err != nil {
		return model.Item{}, unavailable("get", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.byID[id]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return it, nil
}

// UpdatePair implements Store.UpdatePair under the write lock.
func (s *TreapStore) UpdatePair(ctx context.Context, winnerID, loserID string, fn PairFunc) (model.Item, model.Item, error) {
	defer observeUpdate(time.Now(), BackendMemory)
	if err := ctx.Err(); err != nil {
		return model.Item{}, model.Item{}, unavailable("update pair", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[winnerID]
	if !ok {
		return model.Item{}, model.Item{}, ErrNotFound
	}
	l, ok := s.byID[loserID]
	if !ok {
		return model.Item{}, model.Item{}, ErrNotFound
	}

	nw, nl := fn(w, l)
	nw = mergeCounters(w, nw)
	nl = mergeCounters(l, nl)

	s.reindex(w, nw)
	s.reindex(l, nl)
	return nw, nl, nil
}

// mergeCounters copies the mutable fields of updated onto current.
func mergeCounters(current, updated model.Item) model.Item {
	current.Rating = updated.Rating
	current.Wins = updated.Wins
	current.Losses = updated.Losses
	current.TotalVotes = updated.TotalVotes
	return current
}

// reindex stores updated and moves its index keys. Caller holds s.mu.
func (s *TreapStore) reindex(old, updated model.Item) {
	s.byID[updated.ID] = updated
	s.byRating.move(ratingKey(old), ratingKey(updated), updated.ID)
	s.byVotes.move(votesKey(old), votesKey(updated), updated.ID)
}

// TopN implements Store.TopN in O(log n + n) expected time.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]model.Item, error) {
	return s.collect(ctx, &s.byRating, n)
}

// LeastVoted implements Store.LeastVoted in O(log n + n) expected time.
func (s *TreapStore) LeastVoted(ctx context.Context, n int) ([]model.Item, error) {
	return s.collect(ctx, &s.byVotes, n)
}

func (s *TreapStore) collect(ctx context.Context, ix *index, n int) ([]model.Item, error) {
	defer observeQuery(time.Now(), BackendMemory)
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable("collect", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := ix.collect(n)
	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Rank implements Store.Rank in O(log n) expected time.
func (s *TreapStore) Rank(ctx context.Context, id string) (model.Standing, error) {
	defer observeQuery(time.Now(), BackendMemory)
	if err := ctx.Err(); err != nil {
		return model.Standing{}, unavailable("rank", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Standing{}, ErrNotFound
	}
	return model.Standing{Item: it, Rank: s.byRating.rank(ratingKey(it)) + 1}, nil
}

// ByOwner implements Store.ByOwner. It scans every item, which is fine for
// the pool sizes the memory backend is meant for.
func (s *TreapStore) ByOwner(ctx context.Context, owner string) ([]model.Standing, error) {
	defer observeQuery(time.Now(), BackendMemory)
	if err := ctx.Err(); err != nil {
		return nil, unavailable("by owner", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Standing
	for _, it := range s.byID {
		if it.Owner != owner {
			continue
		}
		out = append(out, model.Standing{Item: it, Rank: s.byRating.rank(ratingKey(it)) + 1})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// Count returns the number of items.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("count", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byRating.count(), nil
}

// Close is a no-op for the memory store.
func (s *TreapStore) Close() error {
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/faceoff/internal/domain/model"
)

// backends returns a constructor for every Store implementation.
func backends() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		BackendMemory: func(t *testing.T) Store {
			return NewTreapStore()
		},
		BackendSQLite: func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "items.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func mustInsert(t *testing.T, s Store, id string, rating float64) model.Item {
	t.Helper()
	it, err := s.Insert(context.Background(), model.Item{ID: id, Rating: rating})
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	return it
}

// win is the PairFunc used by tests: a fixed +10/-10 exchange.
func win(w, l model.Item) (model.Item, model.Item) {
	w.Rating += 10
	w.Wins++
	w.TotalVotes++
	l.Rating -= 10
	l.Losses++
	l.TotalVotes++
	return w, l
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStore_InsertAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a, err := s.Insert(ctx, model.Item{ID: "a", Owner: "u1", Filename: "cat.jpg", Rating: 1400})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		b := mustInsert(t, s, "b", 1400)
		if a.Seq == 0 || b.Seq <= a.Seq {
			t.Errorf("expected increasing seq, got %d then %d", a.Seq, b.Seq)
		}
		if a.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}

		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Owner != "u1" || got.Filename != "cat.jpg" || got.Rating != 1400 || got.Seq != a.Seq {
			t.Errorf("unexpected item %+v", got)
		}
		if !got.CreatedAt.Equal(a.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, a.CreatedAt)
		}

		if _, err := s.Insert(ctx, model.Item{ID: "a", Rating: 1500}); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("duplicate insert error = %v, want ErrAlreadyExists", err)
		}
		if got, _ := s.Get(ctx, "a"); got.Rating != 1400 {
			t.Errorf("duplicate insert changed rating to %v", got.Rating)
		}
		if _, err := s.Get(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
			t.Errorf("get unknown error = %v, want ErrNotFound", err)
		}
		if n, err := s.Count(ctx); err != nil || n != 2 {
			t.Errorf("count = %d, %v", n, err)
		}
	})
}

func TestStore_UpdatePair(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustInsert(t, s, "a", 1400)
		mustInsert(t, s, "b", 1400)

		w, l, err := s.UpdatePair(ctx, "a", "b", win)
		if err != nil {
			t.Fatalf("update pair: %v", err)
		}
		if w.Rating != 1410 || w.Wins != 1 || w.TotalVotes != 1 {
			t.Errorf("winner = %+v", w)
		}
		if l.Rating != 1390 || l.Losses != 1 || l.TotalVotes != 1 {
			t.Errorf("loser = %+v", l)
		}
		stored, _ := s.Get(ctx, "b")
		if stored.Rating != 1390 || stored.Losses != 1 {
			t.Errorf("stored loser = %+v", stored)
		}

		called := false
		_, _, err = s.UpdatePair(ctx, "a", "ghost", func(w, l model.Item) (model.Item, model.Item) {
			called = true
			return win(w, l)
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("update with unknown loser error = %v", err)
		}
		if called {
			t.Error("pair func called for unknown id")
		}
		if a, _ := s.Get(ctx, "a"); a.Rating != 1410 || a.TotalVotes != 1 {
			t.Errorf("partial write on failed update: %+v", a)
		}
	})
}

func TestStore_UpdatePairIgnoresIdentityChanges(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustInsert(t, s, "a", 1400)
		mustInsert(t, s, "b", 1400)

		w, _, err := s.UpdatePair(ctx, "a", "b", func(w, l model.Item) (model.Item, model.Item) {
			w.Seq = 999
			w.Owner = "mallory"
			return win(w, l)
		})
		if err != nil {
			t.Fatalf("update pair: %v", err)
		}
		if w.Seq != a.Seq || w.Owner != "" {
			t.Errorf("identity fields changed: %+v", w)
		}
	})
}

func TestStore_Ordering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustInsert(t, s, "low", 1300)
		mustInsert(t, s, "tie1", 1400)
		mustInsert(t, s, "high", 1500)
		mustInsert(t, s, "tie2", 1400)

		top, err := s.TopN(ctx, 10)
		if err != nil {
			t.Fatalf("topN: %v", err)
		}
		if want := []string{"high", "tie1", "tie2", "low"}; !equalIDs(ids(top), want) {
			t.Errorf("TopN = %v, want %v", ids(top), want)
		}

		top2, _ := s.TopN(ctx, 2)
		if want := []string{"high", "tie1"}; !equalIDs(ids(top2), want) {
			t.Errorf("TopN(2) = %v, want %v", ids(top2), want)
		}

		st, err := s.Rank(ctx, "tie2")
		if err != nil || st.Rank != 3 {
			t.Errorf("Rank(tie2) = %d, %v; want 3", st.Rank, err)
		}
		if _, err := s.Rank(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Rank(ghost) error = %v", err)
		}

		if _, err := s.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("TopN(0) error = %v", err)
		}
		if _, err := s.LeastVoted(ctx, -1); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("LeastVoted(-1) error = %v", err)
		}
	})
}

func TestStore_LeastVoted(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, id := range []string{"a", "b", "c", "d"} {
			mustInsert(t, s, id, 1400)
		}
		if _, _, err := s.UpdatePair(ctx, "a", "c", win); err != nil {
			t.Fatal(err)
		}

		got, err := s.LeastVoted(ctx, 3)
		if err != nil {
			t.Fatalf("least voted: %v", err)
		}
		if want := []string{"b", "d", "a"}; !equalIDs(ids(got), want) {
			t.Errorf("LeastVoted = %v, want %v", ids(got), want)
		}
	})
}

func TestStore_ByOwner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, it := range []model.Item{
			{ID: "x1", Owner: "alice", Rating: 1300},
			{ID: "y1", Owner: "bob", Rating: 1600},
			{ID: "x2", Owner: "alice", Rating: 1500},
		} {
			if _, err := s.Insert(ctx, it); err != nil {
				t.Fatal(err)
			}
		}

		got, err := s.ByOwner(ctx, "alice")
		if err != nil {
			t.Fatalf("by owner: %v", err)
		}
		if len(got) != 2 || got[0].ID != "x2" || got[0].Rank != 2 || got[1].ID != "x1" || got[1].Rank != 3 {
			t.Errorf("ByOwner(alice) = %+v", got)
		}

		none, err := s.ByOwner(ctx, "carol")
		if err != nil || len(none) != 0 {
			t.Errorf("ByOwner(carol) = %v, %v", none, err)
		}
	})
}

func TestStore_ConcurrentUpdatePairNoLostUpdates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		items := []string{"a", "b", "c", "d"}
		for _, id := range items {
			mustInsert(t, s, id, 1400)
		}

		const perWorker = 25
		var wg sync.WaitGroup
		errs := make(chan error, 8*perWorker)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					w := items[(g+i)%len(items)]
					l := items[(g+i+1)%len(items)]
					if _, _, err := s.UpdatePair(ctx, w, l, win); err != nil {
						errs <- err
					}
				}
			}(g)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent update: %v", err)
		}

		var votes, wins, losses int64
		var rating float64
		for _, id := range items {
			it, err := s.Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if it.TotalVotes != it.Wins+it.Losses {
				t.Errorf("%s: total %d != wins %d + losses %d", id, it.TotalVotes, it.Wins, it.Losses)
			}
			votes += it.TotalVotes
			wins += it.Wins
			losses += it.Losses
			rating += it.Rating
		}
		if want := int64(2 * 8 * perWorker); votes != want {
			t.Errorf("total votes = %d, want %d", votes, want)
		}
		if wins != losses {
			t.Errorf("wins %d != losses %d", wins, losses)
		}
		if rating != 4*1400 {
			t.Errorf("rating sum drifted to %v", rating)
		}
	})
}

func TestStore_CanceledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		mustInsert(t, s, "a", 1400)
		mustInsert(t, s, "b", 1400)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := s.UpdatePair(ctx, "a", "b", win)
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("update with canceled ctx error = %v, want ErrUnavailable", err)
		}
		if a, _ := s.Get(context.Background(), "a"); a.TotalVotes != 0 {
			t.Errorf("canceled update was applied: %+v", a)
		}
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")
	created := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)

	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, model.Item{ID: "a", Owner: "u1", Rating: 1400, CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, model.Item{ID: "b", Rating: 1400}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.UpdatePair(ctx, "a", "b", win); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()

	a, err := reopened.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if a.Rating != 1410 || a.Wins != 1 || a.TotalVotes != 1 || a.Owner != "u1" {
		t.Errorf("reopened item = %+v", a)
	}
	if !a.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", a.CreatedAt, created)
	}

	c, err := reopened.Insert(ctx, model.Item{ID: "c", Rating: 1400})
	if err != nil {
		t.Fatal(err)
	}
	if c.Seq <= a.Seq {
		t.Errorf("seq went backwards after reopen: %d <= %d", c.Seq, a.Seq)
	}
}

func TestSQLiteStore_OpenFailure(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("open in missing dir error = %v, want ErrUnavailable", err)
	}
}

func TestTreapStore_Clock(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewTreapStore(WithClock(func() time.Time { return fixed }))
	it, err := s.Insert(context.Background(), model.Item{ID: fmt.Sprint(1), Rating: 1400})
	if err != nil {
		t.Fatal(err)
	}
	if !it.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", it.CreatedAt, fixed)
	}
}

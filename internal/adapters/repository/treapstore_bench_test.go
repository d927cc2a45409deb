package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/okian/faceoff/internal/domain/model"
)

func populate(b *testing.B, s Store, n int) []string {
	b.Helper()
	ctx := context.Background()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("item-%d", i)
		if _, err := s.Insert(ctx, model.Item{ID: out[i], Rating: 1400}); err != nil {
			b.Fatal(err)
		}
	}
	return out
}

func BenchmarkTreapStore_UpdatePair(b *testing.B) {
	s := NewTreapStore()
	items := populate(b, s, 100_000)
	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := rand.IntN(len(items))
			j := (i + 1 + rand.IntN(len(items)-1)) % len(items)
			if _, _, err := s.UpdatePair(ctx, items[i], items[j], win); err != nil {
				b.Error(err)
			}
		}
	})
}

func BenchmarkTreapStore_LeastVoted(b *testing.B) {
	s := NewTreapStore()
	populate(b, s, 100_000)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.LeastVoted(ctx, 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTreapStore_Rank(b *testing.B) {
	s := NewTreapStore()
	items := populate(b, s, 100_000)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Rank(ctx, items[i%len(items)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSQLiteStore_UpdatePair(b *testing.B) {
	s, err := NewSQLiteStore(context.Background(), b.TempDir()+"/bench.db")
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = s.Close() }()
	items := populate(b, s, 1_000)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := items[i%len(items)]
		l := items[(i+1)%len(items)]
		if _, _, err := s.UpdatePair(ctx, w, l, win); err != nil {
			b.Fatal(err)
		}
	}
}

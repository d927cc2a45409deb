// Package repository defines the item store capability consumed by the
// ranking core, with an in-memory treap backend and a SQLite backend.
package repository

import (
	"context"

	"github.com/okian/faceoff/internal/domain/model"
)

// Backend labels used for metrics and logs.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// PairFunc computes the new state of a winner and loser from their current
// state. Only Rating, Wins, Losses and TotalVotes of the returned items are
// persisted.
type PairFunc func(winner, loser model.Item) (model.Item, model.Item)

// Store provides read/write access to the item pool.
type Store interface {
	// Insert admits a new item. The store assigns Seq, and CreatedAt when it is zero.
	// Returns ErrAlreadyExists if the id is taken.
	Insert(ctx context.Context, item model.Item) (model.Item, error)

	// Get returns one item or ErrNotFound.
	Get(ctx context.Context, id string) (model.Item, error)

	// UpdatePair reads both items, applies fn and writes both results as
	// one atomic step. Concurrent UpdatePair calls never lose updates.
	// Returns ErrNotFound, without writing, if either id is absent.
	UpdatePair(ctx context.Context, winnerID, loserID string, fn PairFunc) (model.Item, model.Item, error)

	// TopN returns up to n items by rating desc, then admission order.
	TopN(ctx context.Context, n int) ([]model.Item, error)

	// LeastVoted returns up to n items by total votes asc, then admission order.
	LeastVoted(ctx context.Context, n int) ([]model.Item, error)

	// Rank returns the item with its 1-based position in rating order.
	Rank(ctx context.Context, id string) (model.Standing, error)

	// ByOwner returns an owner's items with their ranks, best first.
	ByOwner(ctx context.Context, owner string) ([]model.Standing, error)

	// Count returns the number of items.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

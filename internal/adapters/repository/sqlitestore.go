package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/faceoff/internal/domain/model"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT    NOT NULL UNIQUE,
	owner       TEXT    NOT NULL DEFAULT '',
	filename    TEXT    NOT NULL DEFAULT '',
	rating      REAL    NOT NULL,
	wins        INTEGER NOT NULL DEFAULT 0,
	losses      INTEGER NOT NULL DEFAULT 0,
	total_votes INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_rating ON items (rating DESC, seq ASC);
CREATE INDEX IF NOT EXISTS idx_items_votes  ON items (total_votes ASC, seq ASC);
CREATE INDEX IF NOT EXISTS idx_items_owner  ON items (owner);
`

const itemColumns = `id, owner, filename, rating, wins, losses, total_votes, seq, created_at`

// SQLiteStore is a durable Store backed by a single SQLite file.
//
// The pool is limited to one connection, so every statement and transaction
// is serialized. UpdatePair runs read-compute-write inside one transaction;
// a failed commit rolls back and leaves both rows untouched.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	now         func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and migrates the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open database", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", s.busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, unavailable(p, err)
		}
	}
	if _, err := db.ExecContext(ctx, createSchemaSQL); err != nil {
		_ = db.Close()
		return nil, unavailable("create schema", err)
	}

	s.db = db
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner, extra ...any) (model.Item, error) {
	var (
		it        model.Item
		createdAt int64
	)
	dest := append([]any{
		&it.ID, &it.Owner, &it.Filename, &it.Rating,
		&it.Wins, &it.Losses, &it.TotalVotes, &it.Seq, &createdAt,
	}, extra...)
	if err := r.Scan(dest...); err != nil {
		return model.Item{}, err
	}
	it.CreatedAt = time.Unix(0, createdAt).UTC()
	return it, nil
}

// Insert implements Store.Insert.
func (s *SQLiteStore) Insert(ctx context.Context, item model.Item) (model.Item, error) {
	defer observeUpdate(time.Now(), BackendSQLite)

	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (id, owner, filename, rating, wins, losses, total_votes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		item.ID, item.Owner, item.Filename, item.Rating,
		item.Wins, item.Losses, item.TotalVotes, item.CreatedAt.UnixNano(),
	)
	if err != nil {
		return model.Item{}, unavailable("insert "+item.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Item{}, unavailable("insert "+item.ID, err)
	}
	if n == 0 {
		return model.Item{}, ErrAlreadyExists
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.Item{}, unavailable("insert "+item.ID, err)
	}
	item.Seq = uint64(seq) //nolint:gosec // AUTOINCREMENT is positive
	item.CreatedAt = time.Unix(0, item.CreatedAt.UnixNano()).UTC()
	return item, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Item, error) {
	defer observeQuery(time.Now(), BackendSQLite)
	return getItem(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q querier, id string) (model.Item, error) {
	it, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, ErrNotFound
	}
	if err != nil {
		return model.Item{}, unavailable("get "+id, err)
	}
	return it, nil
}

// UpdatePair implements Store.UpdatePair in a single transaction.
func (s *SQLiteStore) UpdatePair(ctx context.Context, winnerID, loserID string, fn PairFunc) (model.Item, model.Item, error) {
	defer observeUpdate(time.Now(), BackendSQLite)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Item{}, model.Item{}, unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	w, err := getItem(ctx, tx, winnerID)
	if err != nil {
		return model.Item{}, model.Item{}, err
	}
	l, err := getItem(ctx, tx, loserID)
	if err != nil {
		return model.Item{}, model.Item{}, err
	}

	nw, nl := fn(w, l)
	nw = mergeCounters(w, nw)
	nl = mergeCounters(l, nl)

	const update = `UPDATE items SET rating = ?, wins = ?, losses = ?, total_votes = ? WHERE id = ?`
	for _, it := range []model.Item{nw, nl} {
		if _, err := tx.ExecContext(ctx, update, it.Rating, it.Wins, it.Losses, it.TotalVotes, it.ID); err != nil {
			return model.Item{}, model.Item{}, unavailable("update "+it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Item{}, model.Item{}, unavailable("commit", err)
	}
	return nw, nl, nil
}

// TopN implements Store.TopN.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]model.Item, error) {
	return s.list(ctx, n, `ORDER BY rating DESC, seq ASC`)
}

// LeastVoted implements Store.LeastVoted.
func (s *SQLiteStore) LeastVoted(ctx context.Context, n int) ([]model.Item, error) {
	return s.list(ctx, n, `ORDER BY total_votes ASC, seq ASC`)
}

func (s *SQLiteStore) list(ctx context.Context, n int, orderBy string) ([]model.Item, error) {
	defer observeQuery(time.Now(), BackendSQLite)
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items `+orderBy+` LIMIT ?`, n)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	out := make([]model.Item, 0, n)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, unavailable("scan", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return out, nil
}

// Rank implements Store.Rank.
func (s *SQLiteStore) Rank(ctx context.Context, id string) (model.Standing, error) {
	defer observeQuery(time.Now(), BackendSQLite)

	it, err := getItem(ctx, s.db, id)
	if err != nil {
		return model.Standing{}, err
	}
	var ahead int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE rating > ? OR (rating = ? AND seq < ?)`,
		it.Rating, it.Rating, it.Seq,
	).Scan(&ahead)
	if err != nil {
		return model.Standing{}, unavailable("rank "+id, err)
	}
	return model.Standing{Item: it, Rank: ahead + 1}, nil
}

// ByOwner implements Store.ByOwner.
func (s *SQLiteStore) ByOwner(ctx context.Context, owner string) ([]model.Standing, error) {
	defer observeQuery(time.Now(), BackendSQLite)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+`, rnk FROM (
			SELECT `+itemColumns+`, ROW_NUMBER() OVER (ORDER BY rating DESC, seq ASC) AS rnk
			FROM items
		) WHERE owner = ? ORDER BY rnk`, owner)
	if err != nil {
		return nil, unavailable("by owner", err)
	}
	defer rows.Close()

	var out []model.Standing
	for rows.Next() {
		var rank int
		it, err := scanItem(rows, &rank)
		if err != nil {
			return nil, unavailable("scan", err)
		}
		out = append(out, model.Standing{Item: it, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("by owner", err)
	}
	return out, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

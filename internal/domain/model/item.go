// Package model contains domain models passed between layers.
package model

import "time"

// Item is a candidate in the pairwise ranking pool.
type Item struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner,omitempty"`    // submitting user, may be empty
	Filename   string    `json:"filename,omitempty"` // sanitized file name, may be empty
	Rating     float64   `json:"rating"`
	Wins       int64     `json:"wins"`
	Losses     int64     `json:"losses"`
	TotalVotes int64     `json:"total_votes"` // always Wins + Losses
	Seq        uint64    `json:"seq"`         // admission order, assigned by the store
	CreatedAt  time.Time `json:"created_at"`
}

// Outcome is a single "Winner beats Loser" judgment.
type Outcome struct {
	Winner string
	Loser  string
}

// Valid reports whether the outcome names two distinct items. Whether those
// items exist, an empty id included, is for the store to decide.
func (o Outcome) Valid() bool {
	return o.Winner != o.Loser
}

// Standing is an item together with its 1-based rank by rating.
type Standing struct {
	Item
	Rank int `json:"rank"`
}

// Ballot is a request for one voter to judge one pair. ID makes the
// resulting vote idempotent.
type Ballot struct {
	ID       string
	Voter    string
	IssuedAt time.Time
}

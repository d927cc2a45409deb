// Package elo implements the Elo rating update used to rank items from
// pairwise outcomes.
package elo

import "math"

const (
	// K is the maximum rating change a single outcome can cause.
	K = 32.0

	// DefaultRating is assigned to items that have never been compared.
	DefaultRating = 1400.0

	// scale is the rating gap at which the stronger side is expected to win
	// ten times as often.
	scale = 400.0
)

// Expected returns the expected score of a player rated ra against one rated rb.
// Expected(a, b) + Expected(b, a) == 1.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/scale))
}

// Update returns the new winner and loser ratings after the winner beat the
// loser. The result is neither rounded nor clamped.
//
// When the favourite wins by a wide gap (about 6400 points at ratings near
// zero, less at larger magnitudes) the change falls below float64 resolution
// and both ratings come back unchanged. An upset still moves them by nearly K.
func Update(winner, loser float64) (newWinner, newLoser float64) {
	ew := Expected(winner, loser)
	el := Expected(loser, winner)
	return winner + K*(1-ew), loser + K*(0-el)
}

// Finite reports whether r can be used as a rating.
func Finite(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0)
}

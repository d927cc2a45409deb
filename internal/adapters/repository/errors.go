package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("item not found")
	ErrAlreadyExists = errors.New("item already exists")
	ErrInvalidLimit  = errors.New("invalid limit")
	// ErrUnavailable marks a transient backend failure; the call may be retried.
	ErrUnavailable = errors.New("storage unavailable")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

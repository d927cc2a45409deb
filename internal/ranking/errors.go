package ranking

import (
	"errors"
	"fmt"

	"github.com/okian/faceoff/internal/adapters/repository"
)

// Sentinel kinds for ranking errors. Callers match them with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("item not found")
	ErrAlreadyExists     = errors.New("item already exists")
	ErrInsufficientItems = errors.New("fewer than two items available")
	// ErrStorageUnavailable is transient; the caller may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// mapRepoErr translates a repository error into this package's sentinels,
// keeping the original in the chain.
func mapRepoErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%s: %w: %w", op, ErrAlreadyExists, err)
	case errors.Is(err, repository.ErrInvalidLimit):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
}

// errorKind is the metrics label for err.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInsufficientItems):
		return "insufficient_items"
	default:
		return "storage_unavailable"
	}
}

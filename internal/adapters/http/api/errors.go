package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Wrap prefixes err with the handler operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

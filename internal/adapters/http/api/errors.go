package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

var (
	errInvalidLimit  = errors.New("limit must be a positive integer")
	errInvalidWeek   = errors.New("week must look like 2026-W10")
	errMissingPerson = errors.New("missing person")
	errNotClockedIn  = errors.New("no open clock-in")
)

// wrap annotates an error with the operation and its sentinel kind.
func wrap(op string, kind, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

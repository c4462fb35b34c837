package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrAppend marks a failed punch insert. Fatal to the request that
	// carried the punch; never retried silently past the backoff window.
	ErrAppend = errors.New("punch append failed")
)

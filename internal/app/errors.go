package app

import "errors"

// Sentinel kinds for punch submissions.
var (
	// ErrInvalidPerson rejects an empty (or whitespace-only) person.
	ErrInvalidPerson = errors.New("invalid person")

	// ErrDuplicateRequest marks a request id already seen inside the
	// dedupe window. The original punch was recorded; this one is not.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrNotStarted is returned when the service is used before Start.
	ErrNotStarted = errors.New("service not started")
)

// iface.go defines the store contract for dependency injection. Code that
// reads or appends punches accepts PunchStore instead of *Store so tests
// can substitute fakes.
package repository

import (
	"context"

	"github.com/crewtools/crewclock/internal/domain/model"
)

// PunchStore is the full set of punch-log operations.
type PunchStore interface {
	// Append inserts one punch and returns its row id.
	Append(ctx context.Context, p model.Punch) (int64, error)

	// ListByPerson returns one person's punches in pairing order.
	ListByPerson(ctx context.Context, person string) ([]model.Punch, error)

	// ListAll returns the most recent punches, newest first.
	ListAll(ctx context.Context, limit int) ([]model.Punch, error)

	// ListAllAsc returns the full history in (ts, id) order.
	ListAllAsc(ctx context.Context) ([]model.Punch, error)

	// Count returns the total number of punches.
	Count(ctx context.Context) int64

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Compile-time check that *Store implements PunchStore.
var _ PunchStore = (*Store)(nil)

// Package repository persists the punch log in SQLite. The log is
// append-only: punches are inserted once and never rewritten or deleted,
// and every derived figure (open INs, hour totals, published reports) is
// recomputed from it.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/pkg/clock"

	_ "modernc.org/sqlite"
)

const defaultListLimit = 50

// Store manages SQLite persistence for punches. WAL mode plus busy_timeout
// lets aggregation reads run concurrently with punch writes.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New opens (or creates) the database at path and initializes the schema.
// Timestamps are stored as local-zone text in loc; a nil loc means the host
// zone.
func New(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, loc: loc}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS punches (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		person TEXT NOT NULL,
		action TEXT NOT NULL,
		ts     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_person_ts ON punches(person, ts, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// retryOnContention wraps retryOp from retry.go with the default config.
// All write paths go through this to absorb transient SQLite errors under
// concurrent access.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

// Append inserts one punch and returns its row id. Append-only; existing
// rows are never touched.
func (s *Store) Append(ctx context.Context, p model.Punch) (int64, error) {
	var lastID int64
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO punches (person, action, ts) VALUES (?, ?, ?)`,
			p.Person, string(p.Action), p.TS.Format(clock.Stamp),
		)
		if err != nil {
			return err
		}
		lastID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAppend, err)
	}
	return lastID, nil
}

// ListByPerson returns one person's punches ordered by (ts, id), which is
// the pairing order.
func (s *Store) ListByPerson(ctx context.Context, person string) ([]model.Punch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, person, action, ts FROM punches WHERE person = ? ORDER BY ts ASC, id ASC`,
		person,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanPunches(rows)
}

// ListAll returns the most recent punches, newest first. A non-positive
// limit applies the default.
func (s *Store) ListAll(ctx context.Context, limit int) ([]model.Punch, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, person, action, ts FROM punches ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanPunches(rows)
}

// ListAllAsc returns the full punch history in insertion order, the input
// for whole-history aggregation.
func (s *Store) ListAllAsc(ctx context.Context) ([]model.Punch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, person, action, ts FROM punches ORDER BY ts ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanPunches(rows)
}

// Count returns the total number of punches, or 0 on error.
func (s *Store) Count(ctx context.Context) int64 {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM punches`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Ping verifies the store is reachable with a one-row read.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.ListAll(ctx, 1)
	return err
}

func (s *Store) scanPunches(rows *sql.Rows) ([]model.Punch, error) {
	var punches []model.Punch
	for rows.Next() {
		var p model.Punch
		var action, tsStr string
		if err := rows.Scan(&p.ID, &p.Person, &action, &tsStr); err != nil {
			return nil, err
		}
		p.Action = model.Action(action)
		ts, err := time.ParseInLocation(clock.Stamp, tsStr, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse ts for punch %d: %w", p.ID, err)
		}
		p.TS = ts
		punches = append(punches, p)
	}
	return punches, rows.Err()
}

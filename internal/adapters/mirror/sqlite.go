package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/report"

	_ "modernc.org/sqlite"
)

// SQLiteSink is a local workbook-shaped sink: one SQLite file with a row
// log per bucket, a totals page per bucket, and a cross-bucket summary.
// It stands in for the external spreadsheet in deployments that keep
// reporting on the same host.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the workbook at path. An empty path
// means the mirror is not configured.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		return nil, ErrNotConfigured
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrUpstreamTransient, err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate workbook: %v", ErrUpstreamTransient, err)
	}
	return s, nil
}

// Close closes the workbook.
func (s *SQLiteSink) Close() error { return s.db.Close() }

func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bucket_rows (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		bucket TEXT NOT NULL,
		date   TEXT NOT NULL,
		person TEXT NOT NULL,
		action TEXT NOT NULL,
		ts_in  TEXT,
		ts_out TEXT,
		hours  TEXT,
		source TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_bucket_rows_bucket ON bucket_rows(bucket, id);

	CREATE TABLE IF NOT EXISTS bucket_totals (
		bucket      TEXT NOT NULL,
		person      TEXT NOT NULL,
		total_hours REAL NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (bucket, person)
	);

	CREATE TABLE IF NOT EXISTS summary (
		bucket      TEXT NOT NULL,
		person      TEXT NOT NULL,
		total_hours REAL NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (bucket, person)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendRow implements Sink.
func (s *SQLiteSink) AppendRow(ctx context.Context, bucket string, row model.Row) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bucket_rows (bucket, date, person, action, ts_in, ts_out, hours, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bucket, row.Date, row.Person, row.Action, row.TSIn, row.TSOut, row.Hours, row.Source,
	)
	if err != nil {
		return fmt.Errorf("%w: append row: %v", ErrUpstreamTransient, err)
	}
	return nil
}

// BucketRows implements Sink.
func (s *SQLiteSink) BucketRows(ctx context.Context, bucket string) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, person, action, COALESCE(ts_in,''), COALESCE(ts_out,''),
		        COALESCE(hours,''), COALESCE(source,'')
		 FROM bucket_rows WHERE bucket = ? ORDER BY id ASC`, bucket,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read bucket rows: %v", ErrUpstreamTransient, err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var r model.Row
		if err := rows.Scan(&r.Date, &r.Person, &r.Action, &r.TSIn, &r.TSOut, &r.Hours, &r.Source); err != nil {
			return nil, fmt.Errorf("%w: scan bucket row: %v", ErrMalformedData, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate bucket rows: %v", ErrUpstreamTransient, err)
	}
	return out, nil
}

// WriteTotals implements Sink: clear-and-rewrite of the bucket's totals
// page inside one transaction.
func (s *SQLiteSink) WriteTotals(ctx context.Context, bucket string, totals []report.Total, updatedAt string) error {
	return s.replaceBucket(ctx, "bucket_totals", bucket, totals, updatedAt)
}

// WriteSummary implements Sink: replaces only this bucket's rows in the
// cross-bucket summary.
func (s *SQLiteSink) WriteSummary(ctx context.Context, bucket string, totals []report.Total, updatedAt string) error {
	return s.replaceBucket(ctx, "summary", bucket, totals, updatedAt)
}

func (s *SQLiteSink) replaceBucket(ctx context.Context, table, bucket string, totals []report.Total, updatedAt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrUpstreamTransient, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrUpstreamTransient, table, err)
	}
	for _, t := range totals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+table+` (bucket, person, total_hours, updated_at) VALUES (?, ?, ?, ?)`,
			bucket, t.Person, t.Hours, updatedAt,
		); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrUpstreamTransient, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", ErrUpstreamTransient, table, err)
	}
	return nil
}

// Totals reads back a bucket's published totals page, ordered by person.
// Used by tests and the stats surface.
func (s *SQLiteSink) Totals(ctx context.Context, bucket string) ([]SummaryRow, error) {
	return s.readBucket(ctx, "bucket_totals", bucket)
}

// Summary reads back the bucket's rows in the cross-bucket summary.
func (s *SQLiteSink) Summary(ctx context.Context, bucket string) ([]SummaryRow, error) {
	return s.readBucket(ctx, "summary", bucket)
}

func (s *SQLiteSink) readBucket(ctx context.Context, table, bucket string) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bucket, person, total_hours, updated_at FROM `+table+`
		 WHERE bucket = ? ORDER BY LOWER(person) ASC`, bucket,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUpstreamTransient, table, err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.Bucket, &r.Person, &r.Hours, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrMalformedData, table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ Sink = (*SQLiteSink)(nil)

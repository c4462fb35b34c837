// Package mirror defines the external report sink contract. The sink holds
// a copy of punch data plus the published per-bucket totals. The local punch
// store stays authoritative, so every sink failure is logged and absorbed
// rather than rolled back into the punch path.
package mirror

import (
	"context"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/report"
)

// Sink accepts punch rows and published totals, keyed by bucket (ISO week).
type Sink interface {
	// AppendRow appends one punch row to the bucket's row log.
	AppendRow(ctx context.Context, bucket string, row model.Row) error

	// BucketRows returns all rows recorded for a bucket, in append order.
	BucketRows(ctx context.Context, bucket string) ([]model.Row, error)

	// WriteTotals replaces the bucket's published totals page.
	WriteTotals(ctx context.Context, bucket string, totals []report.Total, updatedAt string) error

	// WriteSummary replaces the bucket's rows in the cross-bucket summary,
	// leaving every other bucket's rows untouched.
	WriteSummary(ctx context.Context, bucket string, totals []report.Total, updatedAt string) error
}

// SummaryRow is one line of the cross-bucket summary.
type SummaryRow struct {
	Bucket    string  `json:"bucket"`
	Person    string  `json:"person"`
	Hours     float64 `json:"total_hours"`
	UpdatedAt string  `json:"updated_at"`
}

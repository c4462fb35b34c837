package mirror

import (
	"context"
	"sync"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/report"
)

// MemorySink is an in-memory Sink used by tests and by deployments that run
// without a configured mirror. FailWith can be set to simulate upstream
// failures.
type MemorySink struct {
	mu       sync.Mutex
	rows     map[string][]model.Row
	totals   map[string][]SummaryRow
	summary  map[string][]SummaryRow
	FailWith error
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		rows:    make(map[string][]model.Row),
		totals:  make(map[string][]SummaryRow),
		summary: make(map[string][]SummaryRow),
	}
}

// AppendRow implements Sink.
func (m *MemorySink) AppendRow(_ context.Context, bucket string, row model.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.rows[bucket] = append(m.rows[bucket], row)
	return nil
}

// BucketRows implements Sink.
func (m *MemorySink) BucketRows(_ context.Context, bucket string) ([]model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]model.Row, len(m.rows[bucket]))
	copy(out, m.rows[bucket])
	return out, nil
}

// WriteTotals implements Sink.
func (m *MemorySink) WriteTotals(_ context.Context, bucket string, totals []report.Total, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.totals[bucket] = toSummaryRows(bucket, totals, updatedAt)
	return nil
}

// WriteSummary implements Sink.
func (m *MemorySink) WriteSummary(_ context.Context, bucket string, totals []report.Total, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.summary[bucket] = toSummaryRows(bucket, totals, updatedAt)
	return nil
}

// Totals returns the bucket's published totals page.
func (m *MemorySink) Totals(bucket string) []SummaryRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SummaryRow, len(m.totals[bucket]))
	copy(out, m.totals[bucket])
	return out
}

// Summary returns the bucket's rows in the cross-bucket summary.
func (m *MemorySink) Summary(bucket string) []SummaryRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SummaryRow, len(m.summary[bucket]))
	copy(out, m.summary[bucket])
	return out
}

// RowCount returns the number of rows logged for a bucket.
func (m *MemorySink) RowCount(bucket string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[bucket])
}

func toSummaryRows(bucket string, totals []report.Total, updatedAt string) []SummaryRow {
	rows := make([]SummaryRow, len(totals))
	for i, t := range totals {
		rows[i] = SummaryRow{Bucket: bucket, Person: t.Person, Hours: t.Hours, UpdatedAt: updatedAt}
	}
	return rows
}

var _ Sink = (*MemorySink)(nil)

// Package report recomputes a bucket's published totals from that bucket's
// mirror rows. It is deliberately a recompute-from-scratch operation rather
// than an incremental counter: rebuilding the same rows any number of times
// yields identical output, so the published totals can never drift from the
// per-punch source.
package report

import (
	"sort"
	"strconv"
	"strings"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/pairing"
)

// GrandTotalPerson is the synthetic pseudo-person row appended after the
// per-person totals of a non-empty bucket.
const GrandTotalPerson = "__WEEK_TOTAL__"

// Total is one published totals row for a bucket.
type Total struct {
	Person string  `json:"person"`
	Hours  float64 `json:"total_hours"`
}

// BucketTotals sums hours over a bucket's mirror rows. Only OUT rows carry
// hours; rows with a blank person, a blank hours cell, or a non-numeric
// hours cell are skipped rather than failing the whole rebuild. Output is
// ordered case-insensitively by person with the grand-total pseudo-row last.
func BucketTotals(rows []model.Row) []Total {
	sums := make(map[string]float64)
	for _, row := range rows {
		if !strings.EqualFold(strings.TrimSpace(row.Action), string(model.ActionOut)) {
			continue
		}
		person := strings.TrimSpace(row.Person)
		if person == "" {
			continue
		}
		cell := strings.TrimSpace(row.Hours)
		if cell == "" {
			continue
		}
		hours, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			continue
		}
		sums[person] += hours
	}
	if len(sums) == 0 {
		return nil
	}

	totals := make([]Total, 0, len(sums)+1)
	var grand float64
	for person, hours := range sums {
		totals = append(totals, Total{Person: person, Hours: pairing.RoundHours(hours)})
		grand += hours
	}
	sort.Slice(totals, func(i, j int) bool {
		return strings.ToLower(totals[i].Person) < strings.ToLower(totals[j].Person)
	})
	return append(totals, Total{Person: GrandTotalPerson, Hours: pairing.RoundHours(grand)})
}

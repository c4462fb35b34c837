// Package pairing implements the IN/OUT matching and hours-aggregation
// engine. It is a pure function of the punch log: no state is kept between
// calls and nothing here performs I/O.
//
// Pairing discipline is LIFO everywhere: an OUT closes the most recently
// opened unmatched IN for the same person. Multiple unmatched INs stack when
// OUTs are missing; an OUT with no open IN is dropped, not an error.
package pairing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/crewtools/crewclock/internal/domain/model"
)

// Granularity selects the time bucket hours are attributed to.
type Granularity string

const (
	// Daily buckets by local calendar date, YYYY-MM-DD.
	Daily Granularity = "day"
	// Weekly buckets by ISO week, YYYY-Www.
	Weekly Granularity = "week"
)

// ParseGranularity maps query input to a Granularity, defaulting to Daily.
func ParseGranularity(raw string) (Granularity, error) {
	switch raw {
	case "", string(Daily), "daily":
		return Daily, nil
	case string(Weekly), "weekly", "isoweek":
		return Weekly, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", raw)
	}
}

const secondsPerHour = 3600.0

// RoundHours rounds to 2 decimal places, half away from zero. Every hours
// figure that leaves the engine goes through this one function so the punch
// path and the rebuild path can never disagree on rounding.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// Hours returns the rounded elapsed hours between in and out.
func Hours(in, out time.Time) float64 {
	return RoundHours(out.Sub(in).Seconds() / secondsPerHour)
}

// Bucket returns the bucket key for an instant at the given granularity.
// The instant's own location provides the civil calendar context.
func Bucket(t time.Time, g Granularity) string {
	if g == Weekly {
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	}
	return t.Format("2006-01-02")
}

// FindOpenIn walks one person's punches in (TS, ID) order and returns the
// timestamp of the most recently opened unmatched IN, if any. The caller is
// expected to pass punches already ordered; out-of-order input is sorted
// defensively since correctness of the pairing depends on it.
func FindOpenIn(punches []model.Punch) (time.Time, bool) {
	ordered := sortedCopy(punches)
	var stack []time.Time
	for _, p := range ordered {
		switch p.Action {
		case model.ActionIn:
			stack = append(stack, p.TS)
		case model.ActionOut:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return time.Time{}, false
	}
	return stack[len(stack)-1], true
}

// Aggregate pairs the full punch history and returns person -> bucket ->
// total hours. Input may arrive in any order; punches are grouped by person
// and sorted by (TS, ID) internally. Hours for a closed interval land in the
// bucket of the IN instant. Unmatched trailing INs contribute zero and
// leading OUTs are skipped, so re-running over the same history always
// yields the same mapping.
func Aggregate(punches []model.Punch, g Granularity) map[string]map[string]float64 {
	byPerson := make(map[string][]model.Punch)
	for _, p := range punches {
		byPerson[p.Person] = append(byPerson[p.Person], p)
	}

	totals := make(map[string]map[string]float64)
	for person, ps := range byPerson {
		ordered := sortedCopy(ps)
		var stack []time.Time
		for _, p := range ordered {
			switch p.Action {
			case model.ActionIn:
				stack = append(stack, p.TS)
			case model.ActionOut:
				if len(stack) == 0 {
					continue
				}
				in := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				key := Bucket(in, g)
				if totals[person] == nil {
					totals[person] = make(map[string]float64)
				}
				totals[person][key] += p.TS.Sub(in).Seconds() / secondsPerHour
			}
		}
	}

	for _, buckets := range totals {
		for key, h := range buckets {
			buckets[key] = RoundHours(h)
		}
	}
	return totals
}

func sortedCopy(punches []model.Punch) []model.Punch {
	out := make([]model.Punch, len(punches))
	copy(out, punches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Package clock supplies the wall clock used to stamp punches. The clock is
// pinned to the configured timezone so bucket keys follow the crew's local
// calendar regardless of where the process runs.
package clock

import "time"

// Stamp is the timestamp layout shared by the store and the mirror sink.
const Stamp = "2006-01-02 15:04:05"

// Clock abstracts time.Now for testability.
type Clock interface {
	// Now returns the current instant tagged with the configured location.
	Now() time.Time
}

// Zoned is a wall clock that reports time in a fixed location.
type Zoned struct {
	loc *time.Location
}

// NewZoned builds a Zoned clock. A nil location falls back to the host's
// local zone.
func NewZoned(loc *time.Location) *Zoned {
	if loc == nil {
		loc = time.Local
	}
	return &Zoned{loc: loc}
}

// Now implements Clock.
func (z *Zoned) Now() time.Time { return time.Now().In(z.loc) }

// Location returns the clock's location.
func (z *Zoned) Location() *time.Location { return z.loc }

// LoadLocation resolves an IANA zone name, falling back to the host local
// zone when the name is empty or unknown. The second return reports whether
// the requested zone resolved.
func LoadLocation(name string) (*time.Location, bool) {
	if name == "" {
		return time.Local, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local, false
	}
	return loc, true
}

// Fixed is a frozen clock for tests.
type Fixed struct {
	T time.Time
}

// Now implements Clock.
func (f Fixed) Now() time.Time { return f.T }

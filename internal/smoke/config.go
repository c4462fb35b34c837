// Package smoke drives a running crewclock server end to end: it submits a
// scripted set of shift punches over HTTP and verifies the aggregated hours
// the server reports afterwards.
package smoke

import (
	"runtime"
	"time"
)

// Config controls a smoke run.
type Config struct {
	// BaseURL of the service under test, e.g. http://localhost:8089.
	BaseURL string

	// Crew is the number of distinct persons to punch.
	Crew int

	// Shifts is the number of IN/OUT pairs per person.
	Shifts int

	// Workers is the number of concurrent submitters.
	Workers int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Verbose enables per-punch logging.
	Verbose bool
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8089",
		Crew:    10,
		Shifts:  3,
		Workers: runtime.NumCPU() * 2,
		Timeout: 30 * time.Second,
	}
}

// Stats summarizes a smoke run.
type Stats struct {
	Submitted  int
	Recorded   int
	Duplicates int
	Failed     int
	Verified   int
	Mismatched int
	Elapsed    time.Duration
}

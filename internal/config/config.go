// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, then layer file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite punch log on disk.
	DBPath string `koanf:"db_path"`

	// MirrorPath locates the SQLite mirror workbook. Empty disables mirroring.
	MirrorPath string `koanf:"mirror_path"`

	// Timezone is the IANA zone punches are stamped in, e.g. "America/Chicago".
	// Empty means the host's local zone.
	Timezone string `koanf:"timezone"`

	// SourceTag is stamped on every mirrored row to identify this writer.
	SourceTag string `koanf:"source_tag"`

	// QueueSize bounds the in-memory mirror job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of mirror workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRecentLimit caps GET /punches?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":8089",
		DBPath:         "crewclock.db",
		MirrorPath:     "",
		Timezone:       "",
		SourceTag:      "crew-clock",
		QueueSize:      4096,
		WorkerCount:    2,
		DedupeSize:     10_000,
		MaxRecentLimit: 200,
	}
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/internal/domain/pairing"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// RecordPunch validates, pairs, and appends one punch.
	RecordPunch(ctx context.Context, person, action, requestID string) (model.PunchResult, error)

	// Read operations over the punch log.
	RecentPunches(ctx context.Context, limit int) ([]model.Punch, error)
	Hours(ctx context.Context, g pairing.Granularity) (map[string]map[string]float64, error)
	OpenPunch(ctx context.Context, person string) (time.Time, bool, error)

	// RebuildBucket rewrites a bucket's published totals from the mirror log.
	RebuildBucket(ctx context.Context, bucket string) error

	// Ping reports whether the punch store answers reads.
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	punchHandler   *PunchHandler
	punchesHandler *PunchesHandler
	hoursHandler   *HoursHandler
	statusHandler  *StatusHandler
	rebuildHandler *RebuildHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler

	maxRecentLimit int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxRecentLimit caps the limit accepted by GET /punches.
func WithMaxRecentLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRecentLimit = n
		}
	}
}

const defaultMaxRecentLimit = 200

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxRecentLimit: defaultMaxRecentLimit}
	for _, opt := range opts {
		opt(s)
	}
	s.punchHandler = NewPunchHandler(deps)
	s.punchesHandler = NewPunchesHandler(deps, s.maxRecentLimit)
	s.hoursHandler = NewHoursHandler(deps)
	s.statusHandler = NewStatusHandler(deps)
	s.rebuildHandler = NewRebuildHandler(deps)
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/punch", MetricsMiddleware(s.punchHandler.HandlePostPunch, "punch"))
	mux.HandleFunc("/punches", MetricsMiddleware(s.punchesHandler.HandleGetPunches, "punches"))
	mux.HandleFunc("/hours", MetricsMiddleware(s.hoursHandler.HandleGetHours, "hours"))
	mux.HandleFunc("/status/", MetricsMiddleware(s.statusHandler.HandleGetStatus, "status"))
	mux.HandleFunc("/rebuild-totals", MetricsMiddleware(s.rebuildHandler.HandleRebuild, "rebuild-totals"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

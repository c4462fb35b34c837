// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/pkg/clock"
)

// PunchesHandler serves the recent-punches listing.
type PunchesHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewPunchesHandler creates a new punches handler.
func NewPunchesHandler(deps Dependencies, maxLimit int) *PunchesHandler {
	return &PunchesHandler{deps: deps, maxLimit: maxLimit}
}

type punchEntry struct {
	ID     int64  `json:"id"`
	Person string `json:"person"`
	Action string `json:"action"`
	TS     string `json:"ts"`
}

type punchesResponse struct {
	Punches []punchEntry `json:"punches"`
	Count   int          `json:"count"`
}

// HandleGetPunches handles GET /punches?limit= requests, newest first. The
// limit defaults to the store's page size and is clamped to the configured
// maximum rather than rejected.
func (h *PunchesHandler) HandleGetPunches(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_punches"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, errInvalidLimit))
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	punches, err := h.deps.RecentPunches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	entries := make([]punchEntry, 0, len(punches))
	for _, p := range punches {
		entries = append(entries, toPunchEntry(p))
	}
	writeJSON(w, http.StatusOK, punchesResponse{Punches: entries, Count: len(entries)})
}

func toPunchEntry(p model.Punch) punchEntry {
	return punchEntry{
		ID:     p.ID,
		Person: p.Person,
		Action: string(p.Action),
		TS:     p.TS.Format(clock.Stamp),
	}
}

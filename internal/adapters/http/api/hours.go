// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/crewtools/crewclock/internal/domain/pairing"
)

// HoursHandler serves aggregated hours.
type HoursHandler struct {
	deps Dependencies
}

// NewHoursHandler creates a new hours handler.
func NewHoursHandler(deps Dependencies) *HoursHandler {
	return &HoursHandler{deps: deps}
}

type hoursResponse struct {
	Granularity string                        `json:"granularity"`
	Totals      map[string]map[string]float64 `json:"totals"`
}

// HandleGetHours handles GET /hours?granularity=day|week requests. The
// response maps person to bucket to rounded hours; persons with no closed
// pairs are absent rather than zero.
func (h *HoursHandler) HandleGetHours(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_hours"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	g, err := pairing.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, err))
		return
	}

	totals, err := h.deps.Hours(r.Context(), g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if totals == nil {
		totals = map[string]map[string]float64{}
	}
	writeJSON(w, http.StatusOK, hoursResponse{Granularity: string(g), Totals: totals})
}

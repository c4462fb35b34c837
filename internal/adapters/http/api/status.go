// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/crewtools/crewclock/internal/app"
	"github.com/crewtools/crewclock/pkg/clock"
)

// StatusHandler reports whether a person is currently clocked in.
type StatusHandler struct {
	deps Dependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps Dependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

type statusResponse struct {
	Person string `json:"person"`
	Open   bool   `json:"open"`
	Since  string `json:"since,omitempty"`
}

// HandleGetStatus handles GET /status/{person} requests.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_status"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	person := strings.TrimPrefix(r.URL.Path, "/status/")
	person = strings.TrimSpace(person)
	if person == "" || strings.Contains(person, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, errMissingPerson))
		return
	}

	since, open, err := h.deps.OpenPunch(r.Context(), person)
	switch {
	case errors.Is(err, app.ErrInvalidPerson):
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	if !open {
		writeError(w, http.StatusNotFound, "not_found", wrap(op, ErrNotFound, errNotClockedIn))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Person: person, Open: true, Since: since.Format(clock.Stamp)})
}

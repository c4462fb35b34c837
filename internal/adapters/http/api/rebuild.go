// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"regexp"
)

// RebuildHandler triggers a manual totals rebuild.
type RebuildHandler struct {
	deps Dependencies
}

// NewRebuildHandler creates a new rebuild handler.
func NewRebuildHandler(deps Dependencies) *RebuildHandler {
	return &RebuildHandler{deps: deps}
}

// weekPattern matches ISO week bucket keys, e.g. 2026-W10.
var weekPattern = regexp.MustCompile(`^\d{4}-W\d{2}$`)

type rebuildResponse struct {
	Status string `json:"status"`
	Bucket string `json:"bucket"`
}

// HandleRebuild handles POST /rebuild-totals?week=YYYY-Www requests. An
// omitted week rebuilds the current ISO week. The rebuild runs synchronously
// so the caller observes failures directly.
func (h *RebuildHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.rebuild_totals"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	week := r.URL.Query().Get("week")
	if week != "" && !weekPattern.MatchString(week) {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, errInvalidWeek))
		return
	}

	if err := h.deps.RebuildBucket(r.Context(), week); err != nil {
		writeError(w, http.StatusBadGateway, "mirror_unavailable", err)
		return
	}
	if week == "" {
		week = "current"
	}
	writeJSON(w, http.StatusOK, rebuildResponse{Status: "rebuilt", Bucket: week})
}

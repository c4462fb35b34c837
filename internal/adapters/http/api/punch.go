// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/crewtools/crewclock/internal/app"
	"github.com/crewtools/crewclock/internal/domain/model"
	"github.com/crewtools/crewclock/pkg/clock"
	"github.com/google/uuid"
)

// PunchHandler handles punch submissions.
type PunchHandler struct {
	deps Dependencies
}

// NewPunchHandler creates a new punch handler.
func NewPunchHandler(deps Dependencies) *PunchHandler {
	return &PunchHandler{deps: deps}
}

// punchRequest is the body of POST /punch. RequestID is optional; the server
// assigns one when the client does not, so retried requests only dedupe when
// the client carries its own id.
type punchRequest struct {
	Person    string `json:"person"`
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
}

func (p punchRequest) validate() error {
	switch {
	case strings.TrimSpace(p.Person) == "":
		return errors.New("missing person")
	case strings.TrimSpace(p.Action) == "":
		return errors.New("missing action")
	}
	return nil
}

type pairResponse struct {
	In    string  `json:"in"`
	Out   string  `json:"out"`
	Hours float64 `json:"hours"`
}

type punchResponse struct {
	Status    string        `json:"status"`
	Duplicate bool          `json:"duplicate"`
	ID        int64         `json:"id,omitempty"`
	Person    string        `json:"person,omitempty"`
	Action    string        `json:"action,omitempty"`
	TS        string        `json:"ts,omitempty"`
	Pair      *pairResponse `json:"pair,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// HandlePostPunch handles POST /punch requests.
func (h *PunchHandler) HandlePostPunch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_punch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req punchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	res, err := h.deps.RecordPunch(r.Context(), req.Person, req.Action, req.RequestID)
	switch {
	case errors.Is(err, app.ErrDuplicateRequest):
		writeJSON(w, http.StatusOK, punchResponse{Status: "duplicate", Duplicate: true, RequestID: req.RequestID})
		return
	case errors.Is(err, app.ErrInvalidPerson), errors.Is(err, model.ErrInvalidAction):
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	resp := punchResponse{
		Status:    "recorded",
		ID:        res.Punch.ID,
		Person:    res.Punch.Person,
		Action:    string(res.Punch.Action),
		TS:        res.Punch.TS.Format(clock.Stamp),
		RequestID: req.RequestID,
	}
	if res.Pair != nil {
		resp.Pair = &pairResponse{
			In:    res.Pair.In.Format(clock.Stamp),
			Out:   res.Pair.Out.Format(clock.Stamp),
			Hours: res.Pair.Hours,
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

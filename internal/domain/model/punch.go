// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// Action is the kind of a clock event.
type Action string

const (
	// ActionIn marks the start of a worked interval.
	ActionIn Action = "IN"
	// ActionOut closes the most recent open IN for the same person.
	ActionOut Action = "OUT"
)

// ErrInvalidAction is returned for any action other than IN/OUT.
var ErrInvalidAction = errors.New("invalid action")

// ParseAction normalizes raw form input to an Action. Input is trimmed and
// matched case-insensitively; anything other than IN or OUT is rejected.
func ParseAction(raw string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(ActionIn):
		return ActionIn, nil
	case string(ActionOut):
		return ActionOut, nil
	default:
		return "", ErrInvalidAction
	}
}

// Punch is one recorded clock event. Immutable once appended; the ordering
// key for pairing is (TS, ID), with ID breaking same-instant ties in
// insertion order.
type Punch struct {
	ID     int64     `json:"id"`
	Person string    `json:"person"`
	Action Action    `json:"action"`
	TS     time.Time `json:"ts"`
}

// Before reports whether p orders strictly before other under (TS, ID).
func (p Punch) Before(other Punch) bool {
	if !p.TS.Equal(other.TS) {
		return p.TS.Before(other.TS)
	}
	return p.ID < other.ID
}

// PairSummary describes an OUT punch matched against its open IN.
type PairSummary struct {
	In    time.Time `json:"ts_in"`
	Out   time.Time `json:"ts_out"`
	Hours float64   `json:"hours"`
}

// PunchResult is returned by the record path: the appended punch plus, for
// an OUT that closed an interval, the matched-pair summary.
type PunchResult struct {
	Punch Punch        `json:"punch"`
	Pair  *PairSummary `json:"pair,omitempty"`
}

// Row mirrors the external report sink's per-punch schema. All columns are
// strings because the sink is spreadsheet-shaped; Hours is empty for IN rows
// and for OUT rows that closed nothing.
type Row struct {
	Date   string `json:"date"`
	Person string `json:"person"`
	Action string `json:"action"`
	TSIn   string `json:"ts_in"`
	TSOut  string `json:"ts_out"`
	Hours  string `json:"hours"`
	Source string `json:"source"`
}

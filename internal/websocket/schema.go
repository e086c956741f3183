package websocket

import (
	"time"

	"github.com/etests/etests-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the union of all client messages; fields not used by
// an action are left empty.
type RequestPayload struct {
	Action   Action `json:"action"`
	QID      string `json:"q_id,omitempty"`
	OptionID string `json:"option_id,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady   Event = "ready"
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// ReadyResponse is sent once after the upgrade.
type ReadyResponse struct {
	Event      Event     `json:"event"`
	AttemptID  string    `json:"attempt_id"`
	ServerTime time.Time `json:"server_time"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	QID    string `json:"q_id"`
}

// GradedResponse carries the result after submission, already gated by the
// exam's results-publish flag.
type GradedResponse struct {
	Event  Event                `json:"event"`
	Status string               `json:"status"`
	Result *model.AttemptResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event      Event     `json:"event"`
	ServerTime time.Time `json:"server_time"`
}

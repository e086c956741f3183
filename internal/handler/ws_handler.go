package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/etests/etests-backend/internal/middleware"
	"github.com/etests/etests-backend/internal/response"
	"github.com/etests/etests-backend/internal/service"
	ws "github.com/etests/etests-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// SessionVerifier re-checks the claims a stream was opened with.
type SessionVerifier interface {
	VerifySession(ctx context.Context, claims *service.Claims) error
}

// WSHandler streams a live attempt: draft autosave, submission and pings.
type WSHandler struct {
	attemptService *service.AttemptService
	sessions       SessionVerifier
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, sessions SessionVerifier, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		sessions:       sessions,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream?token=...
// Upgrades to WebSocket for autosave and submission of a live attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}
	studentID := claims.UserID

	// Reject closed or foreign attempts before upgrading so the client gets
	// a regular error envelope.
	expiresAt, err := h.attemptService.CheckLive(c.Request.Context(), studentID, attemptID)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	ws.Prepare(conn)

	wsLog := h.log.With().
		Str("student_id", studentID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	ws.WriteTyped(conn, ws.ReadyResponse{
		Event:      ws.EventReady,
		AttemptID:  attemptID.String(),
		ServerTime: time.Now().UTC(),
		ExpiresAt:  expiresAt,
	})

	ctx := context.WithoutCancel(c.Request.Context())
	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		// A newer login or a logout ends the stream before the action runs.
		if err := h.sessions.VerifySession(ctx, claims); err != nil {
			wsLog.Info().Err(err).Msg("Session no longer valid, closing stream")
			writeServiceError(conn, wsLog, err)
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, studentID, attemptID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, conn, wsLog, studentID, attemptID) {
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong, ServerTime: time.Now().UTC()})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteErrorMessage(conn, response.ErrInvalidPayload, "unknown action: "+string(msg.Action))
		}
	}
}

// writeServiceError reports err as an error event with the same code the
// HTTP API would use.
func writeServiceError(conn *websocket.Conn, log zerolog.Logger, err error) {
	_, code := classify(err)
	if code == response.ErrInternal {
		log.Error().Err(err).Msg("Stream action failed")
	}
	ws.WriteError(conn, code)
}

func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, studentID, attemptID uuid.UUID, msg *ws.RequestPayload) {
	// SECURITY: ids must be well-formed UUIDs before they reach Redis keys.
	qID, err1 := uuid.Parse(msg.QID)
	optionID, err2 := uuid.Parse(msg.OptionID)
	if err1 != nil || err2 != nil {
		ws.WriteErrorMessage(conn, response.ErrInvalidID, "q_id and option_id must be valid UUIDs")
		return
	}

	if err := h.attemptService.SaveAnswer(ctx, studentID, attemptID, qID, optionID); err != nil {
		writeServiceError(conn, h.log, err)
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved", QID: msg.QID})
}

// handleSubmit grades the saved drafts. Returns true when the stream should
// close because the attempt is finished.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID, attemptID uuid.UUID) bool {
	result, err := h.attemptService.SubmitDrafts(ctx, studentID, attemptID)
	if err != nil {
		writeServiceError(conn, wsLog, err)
		_, code := classify(err)
		return code != response.ErrInternal
	}

	wsLog.Info().Bool("force_submitted", result.ForceSubmitted).Msg("Attempt submitted over stream")
	ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Status: "completed", Result: result})
	return true
}

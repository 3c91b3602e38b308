package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/examprep/examprep-backend/internal/model"
	"github.com/examprep/examprep-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowlist permits all origins (development mode).
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

// WSHandler streams the session clock over WebSocket.
type WSHandler struct {
	trainer  *service.TrainerService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(trainer *service.TrainerService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		trainer:  trainer,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// clockTick is one countdown frame pushed to the client.
type clockTick struct {
	Status           model.SessionStatus `json:"status"`
	RemainingSeconds int                 `json:"remaining_seconds"`
	AnsweredCount    int                 `json:"answered_count"`
	TotalQuestions   int                 `json:"total_questions"`
}

// SessionClockStream godoc
// WS /ws/v1/exam-trainer/sessions/:session_id/clock
// Pushes a countdown frame every second until the session turns terminal
// or the client disconnects. The final frame carries the terminal status.
func (h *WSHandler) SessionClockStream(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid session ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Clock stream connected")

	// Drain reads so close frames from the client end the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		state, err := h.trainer.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			writeWSError(conn, "session unavailable")
			return
		}

		tick := clockTick{
			Status:           state.Session.Status,
			RemainingSeconds: int(state.RemainingSeconds),
			AnsweredCount:    state.AnsweredCount,
			TotalQuestions:   state.Session.TotalQuestions,
		}

		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(tick); err != nil {
			wsLog.Debug().Msg("Clock stream closed")
			return
		}

		if state.Session.Status.Terminal() {
			wsLog.Info().Str("status", string(state.Session.Status)).Msg("Session reached terminal state")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(state.Session.Status)))
			return
		}

		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeWSError(conn *websocket.Conn, msg string) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	conn.WriteJSON(gin.H{"error": msg})
}

package chat

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-relay/internal/middleware"
	"github.com/zhouzirui/z-relay/pkg/utils"
)

const wsWriteTimeout = 10 * time.Second

// handleStream pushes every newly appended message as a "message" SSE event.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondFailure(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	session, _ := middleware.SessionFromContext(r.Context())

	messages, cancel := h.chatSvc.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log := h.log.With().Str("transport", "sse").Str("user", session.DisplayName).Logger()
	log.Debug().Msg("stream opened")
	defer log.Debug().Msg("stream closed")

	if err := utils.SendSSEEvent(w, flusher, "status", map[string]string{"message": "stream established"}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "message", msg); err != nil {
				log.Debug().Err(err).Msg("stream write failed")
				return
			}
		case t := <-ticker.C:
			if _, err := h.sessions.Authenticate(ctx, session.Token); err != nil {
				_ = utils.SendSSEEvent(w, flusher, "expired", map[string]string{"message": "session expired"})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{"time": t.UTC().Format(time.RFC3339)}); err != nil {
				return
			}
		}
	}
}

// handleWebSocket pushes every newly appended message as a JSON text frame.
// The connection is closed once the session expires.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())

	// Subscribed before the handshake so nothing appended after it is missed.
	messages, cancel := h.chatSvc.Subscribe()
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().Str("transport", "websocket").Str("user", session.DisplayName).Logger()
	log.Debug().Msg("websocket opened")
	defer log.Debug().Msg("websocket closed")

	// Inbound frames are ignored; reading only detects the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			if _, err := h.sessions.Authenticate(ctx, session.Token); err != nil {
				closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired")
				_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(wsWriteTimeout))
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

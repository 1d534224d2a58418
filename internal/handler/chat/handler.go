package chat

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-relay/internal/middleware"
	chatService "github.com/zhouzirui/z-relay/internal/service/chat"
	sessionService "github.com/zhouzirui/z-relay/internal/service/session"
	"github.com/zhouzirui/z-relay/pkg/utils"
)

const (
	errMissingJoinFields = "Missing username / placeId / jobId"
	errInvalidContent    = "Invalid message content"
	errInvalidBody       = "invalid request body"
)

// Handler serves the session-gated chat routes.
type Handler struct {
	sessions  *sessionService.Registry
	chatSvc   *chatService.Service
	log       zerolog.Logger
	upgrader  websocket.Upgrader
	heartbeat time.Duration
}

// New builds a chat handler over the session registry and message log.
func New(sessions *sessionService.Registry, chatSvc *chatService.Service, log zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		chatSvc:  chatSvc,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		heartbeat: 25 * time.Second,
	}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/join", h.handleJoin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(h.sessions))
		r.Post("/message", h.handleSendMessage)
		r.Get("/messages", h.handleListMessages)
		r.Get("/stream", h.handleStream)
		r.Get("/ws", h.handleWebSocket)
	})
}

type joinResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username json.RawMessage `json:"username"`
		PlaceID  json.RawMessage `json:"placeId"`
		JobID    json.RawMessage `json:"jobId"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		utils.RespondFailure(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	session, err := h.sessions.Join(r.Context(), utils.ScalarText(payload.Username), parsePlaceID(payload.PlaceID), utils.ScalarText(payload.JobID))
	if err != nil {
		if errors.Is(err, sessionService.ErrMissingFields) {
			utils.RespondFailure(w, http.StatusBadRequest, errMissingJoinFields)
			return
		}
		utils.RespondFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, joinResponse{Success: true, Token: session.Token})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	// BearerAuth guarantees the session.
	session, _ := middleware.SessionFromContext(r.Context())

	var payload struct {
		Content any `json:"content"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		utils.RespondFailure(w, http.StatusBadRequest, errInvalidContent)
		return
	}
	content, ok := payload.Content.(string)
	if !ok {
		utils.RespondFailure(w, http.StatusBadRequest, errInvalidContent)
		return
	}

	if _, err := h.chatSvc.Append(r.Context(), session.DisplayName, content); err != nil {
		if errors.Is(err, chatService.ErrInvalidContent) {
			utils.RespondFailure(w, http.StatusBadRequest, errInvalidContent)
			return
		}
		utils.RespondFailure(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	since := parseSince(r.URL.Query().Get("since"))
	messages := h.chatSvc.ListSince(r.Context(), since)

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": messages,
	})
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parsePlaceID accepts a JSON number or numeric string. Anything else,
// including fractional numbers, yields 0 which Join treats as missing.
func parsePlaceID(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}

	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0
		}
		return int64(v)
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return id
	default:
		return 0
	}
}

// parseSince reads the since query value; absent or non-numeric means 0.
func parseSince(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	since, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(since) {
		return 0
	}
	return since
}

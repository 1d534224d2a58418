package board

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	boardService "github.com/zhouzirui/z-relay/internal/service/board"
	"github.com/zhouzirui/z-relay/pkg/utils"
)

// Handler serves the open message board.
type Handler struct {
	boardSvc *boardService.Service
}

// New builds a board handler.
func New(boardSvc *boardService.Service) *Handler {
	return &Handler{boardSvc: boardSvc}
}

// RegisterRoutes mounts the board routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages", h.handleList)
	r.Post("/messages", h.handlePost)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.boardSvc.List(r.Context()))
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User string `json:"user"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.boardSvc.Post(r.Context(), payload.User, payload.Text)
	if err != nil {
		if errors.Is(err, boardService.ErrMissingFields) {
			utils.RespondError(w, http.StatusBadRequest, "Missing user or text")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
	})
}

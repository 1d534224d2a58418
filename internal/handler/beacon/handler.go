package beacon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	beaconService "github.com/zhouzirui/z-relay/internal/service/beacon"
	"github.com/zhouzirui/z-relay/pkg/utils"
)

// Handler serves the presence beacon counter.
type Handler struct {
	counter *beaconService.Counter
}

// New builds a beacon handler.
func New(counter *beaconService.Counter) *Handler {
	return &Handler{counter: counter}
}

// RegisterRoutes mounts the beacon routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/beacon", h.handleRecord)
	r.Get("/beacon", h.handleCount)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID json.RawMessage `json:"userId"`
		JobID  json.RawMessage `json:"jobId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.counter.Record(r.Context(), utils.ScalarText(payload.JobID), utils.ScalarText(payload.UserID)); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Missing userId or jobId")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Beacon recorded",
	})
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.counter.Count(r.Context(), r.URL.Query().Get("jobId"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Missing jobId")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]int{"count": count})
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-relay/internal/config"
	"github.com/zhouzirui/z-relay/internal/handler/beacon"
	"github.com/zhouzirui/z-relay/internal/handler/board"
	"github.com/zhouzirui/z-relay/internal/handler/chat"
	"github.com/zhouzirui/z-relay/internal/middleware"
	beaconService "github.com/zhouzirui/z-relay/internal/service/beacon"
	boardService "github.com/zhouzirui/z-relay/internal/service/board"
	chatService "github.com/zhouzirui/z-relay/internal/service/chat"
	sessionService "github.com/zhouzirui/z-relay/internal/service/session"
	"github.com/zhouzirui/z-relay/pkg/utils"
)

// Services holds the stores backing each mode. Only the stores of the
// selected mode need to be set.
type Services struct {
	Sessions *sessionService.Registry
	Chat     *chatService.Service
	Board    *boardService.Service
	Beacons  *beaconService.Counter
}

// NewRouter wires HTTP routes for mode to the given services.
func NewRouter(mode config.Mode, svc Services, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondText(w, http.StatusOK, "pong")
	})

	switch mode {
	case config.ModeBoard:
		board.New(svc.Board).RegisterRoutes(r)
		beacon.New(svc.Beacons).RegisterRoutes(r)
	default:
		chat.New(svc.Sessions, svc.Chat, logger.With().Str("component", "chat").Logger()).RegisterRoutes(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})

	return r
}

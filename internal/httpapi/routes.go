package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sia12-web/uniHood-sub008/internal/hub"
	"github.com/sia12-web/uniHood-sub008/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/games", CreateGame(h, log))
	r.Post("/games/join", JoinGame(h, log))
	r.Get("/games/{code}", GetGame(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	return r
}

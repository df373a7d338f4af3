package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"quiz-battle-service/internal/app"
)

// NewRouter mounts the websocket endpoint, the room listing and a health probe.
func NewRouter(service *app.BattleService, logger *zap.Logger) http.Handler {
	ws := NewWSHandler(service, logger)
	rooms := NewRoomsHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/battle", func(r chi.Router) {
		r.Use(cors.AllowAll().Handler)
		r.Get("/rooms", rooms.ListRooms)
		r.Get("/room", rooms.GetRoom)
	})
	return r
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chatcore/internal/config"
	"chatcore/internal/domain"
	"chatcore/internal/realtime"
	"chatcore/internal/service"
)

// NewRouter constructs the HTTP router hosting the websocket endpoint and the
// setting/membership endpoints that feed the domain event bus.
func NewRouter(
	cfg *config.Config,
	tokens domain.TokenValidator,
	convs *service.ConversationService,
	wsHandler *realtime.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api", func(r chi.Router) {
		// Timeout stays off the websocket route; /ws outlives any sane
		// request deadline.
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(AuthMiddleware(tokens))

		r.Route("/conversations/{conversationID}", func(r chi.Router) {
			r.Post("/pin", handlePin(convs))
			r.Post("/archive", handleArchive(convs))
			r.Post("/dnd", handleDnd(convs))
			r.Post("/block", handleBlock(convs))
			r.Post("/unblock", handleUnblock(convs))
		})

		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Post("/leave", handleLeaveGroup(convs))
			r.Delete("/members/{userID}", handleRemoveGroupMember(convs))
		})
	})

	// The websocket endpoint authenticates itself; token can also arrive via
	// query parameter or subprotocol, which the middleware does not handle.
	r.Get("/ws", wsHandler.ServeHTTP)

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chathub/auth"
	"chathub/services"
)

type RouterDeps struct {
	Log        *slog.Logger
	Gatekeeper *auth.Gatekeeper
	Auth       *services.AuthService
	Chats      *services.ChatService
	Messages   *services.MessageService

	// WS handles websocket upgrades; it does its own cookie auth.
	WS http.Handler
	// Gatherer serves /metrics.
	Gatherer prometheus.Gatherer

	AccessTTL time.Duration
}

// NewRouter wires every HTTP endpoint: public auth routes, the websocket
// upgrade, operational endpoints, and the cookie-authenticated API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	authHandler := NewAuthHandler(deps.Log, deps.Auth)
	chatHandler := NewChatHandler(deps.Log, deps.Chats)
	messageHandler := NewMessageHandler(deps.Log, deps.Messages, deps.Chats)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	if deps.WS != nil {
		r.Handle("/ws", deps.WS)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(deps.Log, deps.Gatekeeper, deps.AccessTTL))

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatHandler.List)
			r.Post("/", chatHandler.Create)
			r.Get("/{id}", chatHandler.Get)
		})
		r.Get("/messages", messageHandler.List)
	})

	return r
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/convoai/internal/api"
	"github.com/cloo-solutions/convoai/internal/api/handlers"
	"github.com/cloo-solutions/convoai/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator      middleware.AuthValidator
	ChatHandler        *handlers.ChatHandler
	AgentConfigHandler *handlers.AgentConfigHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public chat widget endpoints. The signed token in the URL is the
	// credential, no bearer auth on this group.
	r.Route("/public/chat/{token}", func(r chi.Router) {
		r.Get("/info", cfg.ChatHandler.GetInfo)
		r.Get("/messages", cfg.ChatHandler.ListMessages)
		r.Post("/send", cfg.ChatHandler.SendMessage)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.WorkspaceAuth(cfg.AuthValidator))

		r.Route("/agent", func(r chi.Router) {
			r.Get("/config", cfg.AgentConfigHandler.Get)
			r.Put("/config", cfg.AgentConfigHandler.Update)
			r.Post("/rag/regenerate", cfg.AgentConfigHandler.Regenerate)
			r.Get("/rag/test-search", cfg.AgentConfigHandler.TestSearch)
			r.Post("/rag/import", cfg.AgentConfigHandler.Import)
			r.Post("/conversations", cfg.ChatHandler.Start)
		})
	})

	return r
}

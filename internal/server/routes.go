package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/opsdesk/fncall/internal/handler"
	"github.com/opsdesk/fncall/internal/middleware"
)

func (s *Server) setupRoutes() http.Handler {
	cfg := s.cfg

	// ─── Handlers ────────────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler()
	healthH.Add("transcripts", handler.HealthCheckFunc(s.deps.Store.Ping))
	if s.deps.BigQuery != nil {
		healthH.Add("bigquery", s.deps.BigQuery)
	}
	if s.deps.Search != nil {
		healthH.Add("elasticsearch", s.deps.Search)
	}

	convH := handler.NewConversationHandler(s.deps.Agent, s.deps.Store, cfg.APIKeyHeader)
	toolsH := handler.NewToolsHandler(s.deps.Tools)

	// ─── Router ──────────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
		if cfg.EnableAuth {
			r.Use(middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Post("/conversations", convH.Create)
			r.Get("/conversations/{id}", convH.Get)
			r.Get("/tools", toolsH.List)
		})
	})

	return r
}

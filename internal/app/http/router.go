package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/config"
	"shopwhiz/go_backend/internal/app/http/handlers"
	"shopwhiz/go_backend/internal/app/http/middleware"
)

func NewRouter(cfg config.Config, log *zap.Logger, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(cfg.HTTP.CORSAllowOrigin))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.InternalAuth(cfg.HTTP.InternalToken))

		r.Post("/assistant", h.AssistantChat)
		r.Post("/assistant/stream", h.AssistantStream)
		r.Post("/quotes", h.CreateQuote)
	})

	return r
}

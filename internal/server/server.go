// internal/server/server.go
package server

import (
	"net/http"

	"insight-agent/internal/analyzer"
	"insight-agent/internal/common/config"
	"insight-agent/internal/common/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the analysis service over HTTP.
type Server struct {
	cfg     *config.Config
	service *analyzer.Service
	logger  logger.Logger
}

func New(cfg *config.Config, service *analyzer.Service, log logger.Logger) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		logger:  log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// Router assembles the route tree. The health and metrics endpoints are
// open; the analysis endpoints require the bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/chat", s.handleChat)
	})

	return r
}

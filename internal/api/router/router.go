// Package router provides HTTP routing configuration using Chi.
package router

import (
	_ "embed"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cpixkit/cpix/internal/api/handler"
	"github.com/cpixkit/cpix/internal/api/middleware"
	"github.com/cpixkit/cpix/internal/api/service"
	"github.com/cpixkit/cpix/internal/config"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Config holds router configuration.
type Config struct {
	Version   string
	PlayReady config.PlayReadySettings
	Logger    *slog.Logger
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS)

	healthHandler := handler.NewHealthHandler(cfg.Version)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Get("/api/openapi.yaml", serveOpenAPISpec)

	psshHandler := handler.NewPSSHHandler(service.NewPSSHService(cfg.PlayReady))
	playReadyHandler := handler.NewPlayReadyHandler(service.NewPlayReadyService(cfg.PlayReady))
	cpixHandler := handler.NewCPIXHandler(service.NewCPIXService())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/pssh", func(r chi.Router) {
			r.Post("/widevine", psshHandler.Widevine)
			r.Post("/playready", psshHandler.PlayReady)
			r.Post("/decode", psshHandler.Decode)
		})

		r.Post("/playready/key", playReadyHandler.Key)
		r.Post("/cpix/validate", cpixHandler.Validate)
	})

	return r
}

// serveOpenAPISpec serves the OpenAPI specification file.
func serveOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapiSpec)
}

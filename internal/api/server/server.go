// Package server provides HTTP server configuration and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cpixkit/cpix/internal/api/router"
	"github.com/cpixkit/cpix/internal/config"
)

// Server represents the REST API server.
type Server struct {
	cfg     *config.Config
	version string
	logger  *slog.Logger
	srv     *http.Server
}

// New creates a new Server.
func New(cfg *config.Config, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		cfg:     cfg,
		version: version,
		logger:  logger,
	}
	s.srv = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return router.New(&router.Config{
		Version:   s.version,
		PlayReady: s.cfg.PlayReady,
		Logger:    s.logger,
	})
}

// Start listens on the configured address and blocks until SIGINT or
// SIGTERM.
func (s *Server) Start(out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	s.printStartupInfo(out, ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// printStartupInfo prints server startup information.
func (s *Server) printStartupInfo(w io.Writer, addr string) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "CPIX API Server")
	_, _ = fmt.Fprintln(w, "===============")
	_, _ = fmt.Fprintf(w, "  Version:  %s\n", s.version)
	_, _ = fmt.Fprintf(w, "  Address:  http://%s\n", addr)
	_, _ = fmt.Fprintf(w, "  LA_URL:   %s\n", s.cfg.PlayReady.LAURL)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Endpoints:")
	_, _ = fmt.Fprintln(w, "  GET  /health                  - Health check")
	_, _ = fmt.Fprintln(w, "  GET  /ready                   - Readiness check")
	_, _ = fmt.Fprintln(w, "  GET  /api/openapi.yaml        - OpenAPI specification")
	_, _ = fmt.Fprintln(w, "  POST /api/v1/pssh/widevine    - Build a Widevine PSSH box")
	_, _ = fmt.Fprintln(w, "  POST /api/v1/pssh/playready   - Build a PlayReady PSSH box")
	_, _ = fmt.Fprintln(w, "  POST /api/v1/pssh/decode      - Decode a PSSH box")
	_, _ = fmt.Fprintln(w, "  POST /api/v1/playready/key    - Derive PlayReady content keys")
	_, _ = fmt.Fprintln(w, "  POST /api/v1/cpix/validate    - Validate a CPIX document")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Use Ctrl+C to stop")
	_, _ = fmt.Fprintln(w)
}

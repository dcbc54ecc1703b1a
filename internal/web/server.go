package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/anurag-haridas/visual-impaired/internal/constants"
	"github.com/anurag-haridas/visual-impaired/internal/gallery"
	"github.com/anurag-haridas/visual-impaired/internal/web/handlers"
	"github.com/anurag-haridas/visual-impaired/internal/web/middleware"
)

// Server is the read-only status server that runs next to the recognition loop.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	pipeline   handlers.Pipeline
	gallery    *gallery.Gallery
	gatherer   prometheus.Gatherer
}

// NewServer creates a status server listening on addr for the running
// pipeline p. gatherer backs /metrics; nil uses the default Prometheus
// registry.
func NewServer(addr string, p handlers.Pipeline, g *gallery.Gallery, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	s := &Server{
		router:   r,
		pipeline: p,
		gallery:  g,
		gatherer: gatherer,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  constants.StatusReadTimeout,
		WriteTimeout: constants.StatusWriteTimeout,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("web: status server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("web: shutting down status server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

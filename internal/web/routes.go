package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anurag-haridas/visual-impaired/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	var status handlers.StatusProvider
	if s.pipeline != nil {
		status = s.pipeline
	}
	statusHandler := handlers.NewStatusHandler(status)
	eventsHandler := handlers.NewEventsHandler(s.pipeline)
	galleryHandler := handlers.NewGalleryHandler(s.gallery)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/status", statusHandler.Get)
		r.Get("/gallery", galleryHandler.Get)
		r.Get("/events", eventsHandler.Stream)
	})

	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/openscrape/facedex/internal/web/handlers"
)

func (s *Server) setupRoutes(deps Deps) {
	imagesHandler := handlers.NewImagesHandler(deps.Pipeline, deps.Registry, deps.Detector)
	identitiesHandler := handlers.NewIdentitiesHandler(deps.Registry, deps.Store, deps.Covers, deps.Namer)
	statsHandler := handlers.NewStatsHandler(deps.Store, deps.Registry)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Ingestion
		r.Post("/images", imagesHandler.Upload)
		r.Post("/batches", imagesHandler.Batch)
		r.Post("/faces/match", imagesHandler.Match)

		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Get("/identities/{id}", identitiesHandler.Get)
		r.Put("/identities/{id}", identitiesHandler.Rename)
		r.Post("/identities/{id}/merge", identitiesHandler.Merge)
		r.Get("/identities/{id}/faces", identitiesHandler.Faces)
		r.Get("/identities/{id}/cover", identitiesHandler.Cover)
		r.Post("/identities/{id}/suggest-name", identitiesHandler.SuggestName)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}

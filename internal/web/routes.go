package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/albums"
	"github.com/kozaktomas/photo-library/internal/people"
	"github.com/kozaktomas/photo-library/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	peopleService := people.NewService(s.deps.Store, s.logger)
	albumService := albums.NewService(s.deps.Store, s.logger)

	jobsHandler := handlers.NewJobsHandler(s.deps.Runner)
	rootsHandler := handlers.NewRootsHandler(s.deps.Store)
	facesHandler := handlers.NewFacesHandler(s.deps.Store, peopleService)
	peopleHandler := handlers.NewPeopleHandler(peopleService)
	albumsHandler := handlers.NewAlbumsHandler(albumService)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Roots and their maintenance jobs
		r.Get("/roots", rootsHandler.List)
		r.Post("/roots", rootsHandler.Create)
		r.Post("/roots/{id}/{op}", jobsHandler.StartRoot)

		// Jobs
		r.Get("/jobs", jobsHandler.List)
		r.Get("/jobs/{jobId}", jobsHandler.Get)

		// Faces
		r.Get("/faces", facesHandler.List)
		r.Post("/faces/recognize", jobsHandler.Recognize)
		r.Get("/faces/{id}/thumbnail", facesHandler.Thumbnail)
		r.Post("/faces/{id}/{action}", facesHandler.Review)

		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Create)
		r.Delete("/people/{id}", peopleHandler.Delete)
		r.Get("/people/{id}/thumbnail", peopleHandler.Thumbnail)

		// Albums
		r.Get("/albums", albumsHandler.Tree)
		r.Post("/albums", albumsHandler.Create)
		r.Post("/albums/{id}/files", albumsHandler.AddFile)
	})
}

// Package api implements the feeder REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/petfeeder/internal/petservice"
	"github.com/starford/petfeeder/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// photos may be nil, which disables upload and serving of photos.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *petservice.Service, photos storage.Provider, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/pets", h.ListPets)
	r.Post("/pets", h.CreatePet)
	r.Route("/pets/{id}", func(r chi.Router) {
		r.Get("/", h.GetPet)
		r.Delete("/", h.DeletePet)
		r.Post("/feed", h.FeedNow)
		r.Get("/feeds", h.ListFeeds)
		r.Get("/statistics", h.Statistics)
		r.Get("/triggers", h.ListTriggers)
		r.Post("/triggers", h.Schedule)
		r.Post("/photo", h.UploadPhoto)
	})
	r.Delete("/triggers/{id}", h.DeleteTrigger)

	if photos != nil {
		ph := NewPhotoHandler(photos)
		r.Get("/photos/{name}", ph.ServeFile)
	}

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

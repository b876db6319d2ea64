package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/petfeeder/internal/storage"
)

// PhotoHandler serves uploaded pet photos.
type PhotoHandler struct {
	photos storage.Provider
}

// NewPhotoHandler creates a handler on top of the photo store.
func NewPhotoHandler(photos storage.Provider) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// ServeFile handles GET /api/photos/{name}.
func (h *PhotoHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	abs, err := h.photos.Path(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid photo name"))
		return
	}
	if !h.photos.Exists(name) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, abs)
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/petfeeder/internal/models"
	"github.com/starford/petfeeder/internal/petservice"
	"github.com/starford/petfeeder/internal/storage"
)

// Handler holds API route handlers.
type Handler struct {
	svc *petservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *petservice.Service) *Handler {
	return &Handler{svc: svc}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return 0, false
	}
	return id, true
}

// ListPets handles GET /api/pets.
func (h *Handler) ListPets(w http.ResponseWriter, r *http.Request) {
	pets, err := h.svc.ListPets(r.Context())
	if err != nil {
		writeError(w, "list pets", err)
		return
	}
	writeJSON(w, http.StatusOK, PetListResponse{Pets: pets})
}

// CreatePet handles POST /api/pets.
func (h *Handler) CreatePet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreatePetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	pet, err := h.svc.CreatePet(r.Context(), req.Name, req.Age, req.Photo)
	if err != nil {
		writeError(w, "create pet", err)
		return
	}
	writeJSON(w, http.StatusCreated, pet)
}

// GetPet handles GET /api/pets/{id}.
func (h *Handler) GetPet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	pet, err := h.svc.GetPet(r.Context(), id)
	if err != nil {
		writeError(w, "get pet", err)
		return
	}
	writeJSON(w, http.StatusOK, pet)
}

// DeletePet handles DELETE /api/pets/{id}.
func (h *Handler) DeletePet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePet(r.Context(), id); err != nil {
		writeError(w, "delete pet", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FeedNow handles POST /api/pets/{id}/feed.
func (h *Handler) FeedNow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	pet, rec, err := h.svc.FeedNow(r.Context(), id)
	if err != nil {
		writeError(w, "feed now", err)
		return
	}
	writeJSON(w, http.StatusOK, FeedResponse{Pet: pet, Feed: rec})
}

// ListFeeds handles GET /api/pets/{id}/feeds.
func (h *Handler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	feeds, err := h.svc.ListFeeds(r.Context(), id, limit)
	if err != nil {
		writeError(w, "list feeds", err)
		return
	}
	writeJSON(w, http.StatusOK, FeedListResponse{Feeds: feeds})
}

// Statistics handles GET /api/pets/{id}/statistics?period=day|week|month|all.
// The period defaults to week.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(models.PeriodWeek)
	}
	n, err := h.svc.Statistics(r.Context(), id, period)
	if err != nil {
		writeError(w, "statistics", err)
		return
	}
	p, _ := models.ParsePeriod(period)
	writeJSON(w, http.StatusOK, StatisticsResponse{PetID: id, Period: string(p), Count: n})
}

// ListTriggers handles GET /api/pets/{id}/triggers.
func (h *Handler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	triggers, err := h.svc.ListTriggers(r.Context(), id)
	if err != nil {
		writeError(w, "list triggers", err)
		return
	}
	writeJSON(w, http.StatusOK, TriggerListResponse{Triggers: triggers})
}

// Schedule handles POST /api/pets/{id}/triggers.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var (
		tv  *petservice.TriggerView
		err error
	)
	switch {
	case req.Time != "":
		tv, err = h.svc.ScheduleAt(r.Context(), id, req.Time)
	case req.Hour != nil && req.Minute != nil:
		tv, err = h.svc.Schedule(r.Context(), id, *req.Hour, *req.Minute)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("time or hour and minute are required"))
		return
	}
	if err != nil {
		writeError(w, "schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, tv)
}

// DeleteTrigger handles DELETE /api/triggers/{id}. Unknown ids succeed.
func (h *Handler) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTrigger(r.Context(), id); err != nil {
		writeError(w, "delete trigger", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto handles POST /api/pets/{id}/photo (multipart/form-data, field "photo").
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(storage.MaxPhotoBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'photo' field in multipart form"))
		return
	}
	defer file.Close()

	pet, err := h.svc.SetPhoto(r.Context(), id, header.Filename, file)
	if err != nil {
		writeError(w, "upload photo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pet": pet,
		"url": "/api/photos/" + pet.Photo,
	})
}

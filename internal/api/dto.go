package api

import (
	"github.com/starford/petfeeder/internal/models"
	"github.com/starford/petfeeder/internal/petservice"
)

// CreatePetRequest is the request body for creating a pet.
type CreatePetRequest struct {
	Name  string `json:"name" example:"Rex"`
	Age   int    `json:"age" example:"3"`
	Photo string `json:"photo,omitempty"`
}

// ScheduleRequest creates a daily trigger. Either Time ("HH:MM") or
// Hour/Minute is used.
type ScheduleRequest struct {
	Time   string `json:"time,omitempty" example:"08:00"`
	Hour   *int   `json:"hour,omitempty"`
	Minute *int   `json:"minute,omitempty"`
}

// FeedResponse is returned after a successful feed.
type FeedResponse struct {
	Pet  *models.Pet        `json:"pet"`
	Feed *models.FeedRecord `json:"feed"`
}

// StatisticsResponse reports the feed count of a period window.
type StatisticsResponse struct {
	PetID  int64  `json:"pet_id"`
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// PetListResponse wraps the pet listing.
type PetListResponse struct {
	Pets []models.Pet `json:"pets"`
}

// TriggerListResponse wraps a pet's triggers.
type TriggerListResponse struct {
	Triggers []petservice.TriggerView `json:"triggers"`
}

// FeedListResponse wraps recent feeds.
type FeedListResponse struct {
	Feeds []models.FeedRecord `json:"feeds"`
}

// PetDetail is the single-pet response (aliased from the domain layer).
type PetDetail = petservice.PetDetail

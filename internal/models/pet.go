// Package models defines the domain types for the pet feeder.
package models

import "time"

// Pet is a registered animal together with its feeding progression.
type Pet struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Photo      string    `json:"photo,omitempty"`
	FeedCount  int64     `json:"feed_count"`
	Experience int64     `json:"experience"`
	Level      string    `json:"level"`
	CreatedAt  time.Time `json:"created_at"`
}

// Feed sources.
const (
	SourceManual   = "manual"
	SourceSchedule = "schedule"
)

// FeedRecord is written once per successful actuation and never modified.
type FeedRecord struct {
	ID     int64     `json:"id"`
	PetID  int64     `json:"pet_id"`
	FedAt  time.Time `json:"fed_at"`
	Source string    `json:"source"`
}

// Trigger is a daily feeding time for one pet.
type Trigger struct {
	ID        int64     `json:"id"`
	PetID     int64     `json:"pet_id"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	CreatedAt time.Time `json:"created_at"`
}

// Clock returns the trigger time formatted as HH:MM.
func (t Trigger) Clock() string {
	return FormatClock(t.Hour, t.Minute)
}

// Package registry holds the set of daily feeding triggers. Triggers live in
// the pet store so the registry survives restarts without extra state.
package registry

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/models"
)

// Backend is the slice of the pet store the registry needs.
type Backend interface {
	InsertTrigger(ctx context.Context, petID int64, hour, minute int) (*models.Trigger, error)
	GetTrigger(ctx context.Context, id int64) (*models.Trigger, error)
	DeleteTrigger(ctx context.Context, id int64) (bool, error)
	ListTriggers(ctx context.Context, petID int64) ([]models.Trigger, error)
	AllTriggers(ctx context.Context) ([]models.Trigger, error)
	DeleteTriggersForPet(ctx context.Context, petID int64) error
}

// Registry validates and persists triggers.
type Registry struct {
	backend Backend
}

// New creates a registry on top of the given backend.
func New(backend Backend) *Registry {
	return &Registry{backend: backend}
}

type triggerInput struct {
	Hour   int
	Minute int
}

func (in *triggerInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Hour, validation.Min(0), validation.Max(23)),
		validation.Field(&in.Minute, validation.Min(0), validation.Max(59)),
	)
}

// AddTrigger registers a daily trigger for the pet. An identical
// (pet, hour, minute) tuple is rejected with apperr.ErrAlreadyExists.
func (r *Registry) AddTrigger(ctx context.Context, petID int64, hour, minute int) (*models.Trigger, error) {
	in := triggerInput{Hour: hour, Minute: minute}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return r.backend.InsertTrigger(ctx, petID, hour, minute)
}

// RemoveTrigger deletes the trigger. Removing an unknown id is a no-op; the
// returned bool reports whether anything was removed.
func (r *Registry) RemoveTrigger(ctx context.Context, id int64) (bool, error) {
	return r.backend.DeleteTrigger(ctx, id)
}

// Get returns a single trigger or apperr.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id int64) (*models.Trigger, error) {
	return r.backend.GetTrigger(ctx, id)
}

// ListTriggers returns the pet's triggers ordered by time of day.
func (r *Registry) ListTriggers(ctx context.Context, petID int64) ([]models.Trigger, error) {
	return r.backend.ListTriggers(ctx, petID)
}

// All returns every registered trigger.
func (r *Registry) All(ctx context.Context) ([]models.Trigger, error) {
	return r.backend.AllTriggers(ctx)
}

// RemoveAllForPet drops every trigger owned by the pet.
func (r *Registry) RemoveAllForPet(ctx context.Context, petID int64) error {
	return r.backend.DeleteTriggersForPet(ctx, petID)
}

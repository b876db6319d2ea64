// Package petservice is the operation surface of the feeder: manual
// feeding, pet management, scheduling and statistics. The HTTP API and the
// MCP server are thin adapters over it.
package petservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jonboulle/clockwork"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/models"
	"github.com/starford/petfeeder/internal/storage"
)

// Event kinds published by the service.
const (
	EventCreated        = "created"
	EventDeleted        = "deleted"
	EventScheduled      = "scheduled"
	EventTriggerDeleted = "trigger_deleted"
	EventPhotoUpdated   = "photo_updated"
	EventPhotoCleared   = "photo_cleared"
)

// Store is the pet persistence the service reads and writes directly.
type Store interface {
	CreatePet(ctx context.Context, name string, age int, photo string) (*models.Pet, error)
	GetPet(ctx context.Context, id int64) (*models.Pet, error)
	ListPets(ctx context.Context) ([]models.Pet, error)
	DeletePet(ctx context.Context, id int64) error
	SetPhoto(ctx context.Context, id int64, photo string) error
	ClearPhotoRef(ctx context.Context, photo string) ([]int64, error)
	FeedStatistics(ctx context.Context, petID int64, period models.Period, now time.Time) (int, error)
	ListFeeds(ctx context.Context, petID int64, limit int) ([]models.FeedRecord, error)
}

// Registry holds the daily triggers.
type Registry interface {
	AddTrigger(ctx context.Context, petID int64, hour, minute int) (*models.Trigger, error)
	RemoveTrigger(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (*models.Trigger, error)
	ListTriggers(ctx context.Context, petID int64) ([]models.Trigger, error)
}

// Scheduler arms and disarms triggers. It is optional: a process that only
// edits the database (the MCP server) leaves arming to the running daemon.
type Scheduler interface {
	Arm(t models.Trigger) error
	Disarm(id int64) bool
	Next(id int64) (time.Time, bool)
}

// Dispenser performs one feed.
type Dispenser interface {
	Dispense(ctx context.Context, petID int64, source string) (*models.Pet, *models.FeedRecord, error)
}

// Publisher receives pet events.
type Publisher interface {
	PublishPetEvent(kind string, petID int64, data any)
}

// Deps are the collaborators of a Service. Scheduler, Photos and Publisher
// may be nil.
type Deps struct {
	Store     Store
	Registry  Registry
	Scheduler Scheduler
	Dispenser Dispenser
	Photos    storage.Provider
	Publisher Publisher
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// Config tunes the service.
type Config struct {
	// ManualInterval is the minimum spacing of manual feeds per pet once
	// the burst is used up. Zero disables the limit.
	ManualInterval time.Duration
	ManualBurst    int
}

// TriggerView is a trigger with its wall-clock form and next firing.
type TriggerView struct {
	models.Trigger
	Time     string     `json:"time"`
	NextFire *time.Time `json:"next_fire,omitempty"`
}

// PetDetail is a pet with its level progress and schedule.
type PetDetail struct {
	models.Pet
	NextLevel   string        `json:"next_level,omitempty"`
	ToNextLevel int64         `json:"to_next_level,omitempty"`
	Triggers    []TriggerView `json:"triggers"`
}

// Service implements the feeder operations.
type Service struct {
	store   Store
	reg     Registry
	sched   Scheduler
	disp    Dispenser
	photos  storage.Provider
	pub     Publisher
	clock   clockwork.Clock
	log     *slog.Logger
	limiter *feedLimiter
}

// NewService creates a new pet service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		store:   deps.Store,
		reg:     deps.Registry,
		sched:   deps.Scheduler,
		disp:    deps.Dispenser,
		photos:  deps.Photos,
		pub:     deps.Publisher,
		clock:   deps.Clock,
		log:     deps.Logger,
		limiter: newFeedLimiter(cfg.ManualInterval, cfg.ManualBurst),
	}
}

// FeedNow dispenses one portion for the pet right away.
func (s *Service) FeedNow(ctx context.Context, petID int64) (*models.Pet, *models.FeedRecord, error) {
	if _, err := s.store.GetPet(ctx, petID); err != nil {
		return nil, nil, err
	}
	if !s.limiter.allow(petID) {
		return nil, nil, fmt.Errorf("%w: pet %d was fed moments ago", apperr.ErrRateLimited, petID)
	}
	return s.disp.Dispense(ctx, petID, models.SourceManual)
}

type petInput struct {
	Name string
	Age  int
}

func (in *petInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.Age, validation.Min(0), validation.Max(200)),
	)
}

// CreatePet registers a pet at experience zero. photo, if set, must be the
// name of an already uploaded photo.
func (s *Service) CreatePet(ctx context.Context, name string, age int, photo string) (*models.Pet, error) {
	in := petInput{Name: strings.TrimSpace(name), Age: age}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if photo != "" && (s.photos == nil || !s.photos.Exists(photo)) {
		return nil, fmt.Errorf("%w: unknown photo %q", apperr.ErrValidation, photo)
	}

	pet, err := s.store.CreatePet(ctx, in.Name, in.Age, photo)
	if err != nil {
		return nil, err
	}
	s.log.Info("pet created", slog.Int64("pet_id", pet.ID), slog.String("name", pet.Name))
	s.publish(EventCreated, pet.ID, pet)
	return pet, nil
}

// GetPet returns the pet with level progress and triggers.
func (s *Service) GetPet(ctx context.Context, id int64) (*PetDetail, error) {
	pet, err := s.store.GetPet(ctx, id)
	if err != nil {
		return nil, err
	}
	triggers, err := s.reg.ListTriggers(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &PetDetail{Pet: *pet, Triggers: s.views(triggers)}
	if label, remaining, ok := models.NextLevel(pet.Experience); ok {
		d.NextLevel = label
		d.ToNextLevel = remaining
	}
	return d, nil
}

// ListPets returns every pet.
func (s *Service) ListPets(ctx context.Context) ([]models.Pet, error) {
	return s.store.ListPets(ctx)
}

// Schedule registers a daily trigger and arms it.
func (s *Service) Schedule(ctx context.Context, petID int64, hour, minute int) (*TriggerView, error) {
	t, err := s.reg.AddTrigger(ctx, petID, hour, minute)
	if err != nil {
		return nil, err
	}
	if s.sched != nil {
		if err := s.sched.Arm(*t); err != nil {
			s.log.Warn("trigger stored but not armed",
				slog.Int64("trigger_id", t.ID),
				slog.String("error", err.Error()))
		}
		// A DeleteTrigger that ran before Arm could not disarm it.
		if _, err := s.reg.Get(ctx, t.ID); errors.Is(err, apperr.ErrNotFound) {
			s.sched.Disarm(t.ID)
		}
	}
	s.log.Info("feeding scheduled",
		slog.Int64("pet_id", petID),
		slog.Int64("trigger_id", t.ID),
		slog.String("at", t.Clock()))
	v := s.view(*t)
	s.publish(EventScheduled, petID, v)
	return &v, nil
}

// ScheduleAt is Schedule with an "HH:MM" time of day.
func (s *Service) ScheduleAt(ctx context.Context, petID int64, clock string) (*TriggerView, error) {
	hour, minute, err := models.ParseClock(clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return s.Schedule(ctx, petID, hour, minute)
}

// DeleteTrigger removes and disarms a trigger. Unknown ids are not an error.
func (s *Service) DeleteTrigger(ctx context.Context, id int64) error {
	t, err := s.reg.Get(ctx, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if _, err := s.reg.RemoveTrigger(ctx, id); err != nil {
		return err
	}
	if s.sched != nil {
		s.sched.Disarm(id)
	}
	if t != nil {
		s.log.Info("trigger deleted", slog.Int64("trigger_id", id), slog.Int64("pet_id", t.PetID))
		s.publish(EventTriggerDeleted, t.PetID, map[string]int64{"trigger_id": id})
	}
	return nil
}

// DeletePet removes the pet with its feed history and triggers. Every
// trigger is disarmed before DeletePet returns.
func (s *Service) DeletePet(ctx context.Context, id int64) error {
	pet, err := s.store.GetPet(ctx, id)
	if err != nil {
		return err
	}
	triggers, err := s.reg.ListTriggers(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePet(ctx, id); err != nil {
		return err
	}
	if s.sched != nil {
		for _, t := range triggers {
			s.sched.Disarm(t.ID)
		}
	}
	if pet.Photo != "" && s.photos != nil {
		if err := s.photos.Delete(pet.Photo); err != nil {
			s.log.Warn("pet photo not removed", slog.String("photo", pet.Photo), slog.String("error", err.Error()))
		}
	}
	s.log.Info("pet deleted",
		slog.Int64("pet_id", id),
		slog.String("name", pet.Name),
		slog.Int("triggers", len(triggers)))
	s.publish(EventDeleted, id, nil)
	return nil
}

// Statistics counts the pet's feeds inside the trailing period window.
func (s *Service) Statistics(ctx context.Context, petID int64, period string) (int, error) {
	p, err := models.ParsePeriod(period)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if _, err := s.store.GetPet(ctx, petID); err != nil {
		return 0, err
	}
	return s.store.FeedStatistics(ctx, petID, p, s.clock.Now())
}

// ListTriggers returns the pet's triggers with their next firing.
func (s *Service) ListTriggers(ctx context.Context, petID int64) ([]TriggerView, error) {
	if _, err := s.store.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	triggers, err := s.reg.ListTriggers(ctx, petID)
	if err != nil {
		return nil, err
	}
	return s.views(triggers), nil
}

// ListFeeds returns the most recent feeds, newest first.
func (s *Service) ListFeeds(ctx context.Context, petID int64, limit int) ([]models.FeedRecord, error) {
	if _, err := s.store.GetPet(ctx, petID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.ListFeeds(ctx, petID, limit)
}

// SetPhoto stores an uploaded photo and attaches it to the pet. The
// previous photo file, if any, is removed.
func (s *Service) SetPhoto(ctx context.Context, petID int64, filename string, r io.Reader) (*models.Pet, error) {
	if s.photos == nil {
		return nil, fmt.Errorf("%w: photo uploads are disabled", apperr.ErrValidation)
	}
	pet, err := s.store.GetPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	name, err := s.photos.Save(filename, r)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		}
		return nil, err
	}
	if err := s.store.SetPhoto(ctx, petID, name); err != nil {
		_ = s.photos.Delete(name)
		return nil, err
	}
	if pet.Photo != "" && pet.Photo != name {
		if err := s.photos.Delete(pet.Photo); err != nil {
			s.log.Warn("old photo not removed", slog.String("photo", pet.Photo), slog.String("error", err.Error()))
		}
	}
	pet.Photo = name
	s.publish(EventPhotoUpdated, petID, map[string]string{"photo": name})
	return pet, nil
}

// ClearPhoto drops every reference to a photo that no longer exists.
func (s *Service) ClearPhoto(ctx context.Context, name string) ([]int64, error) {
	ids, err := s.store.ClearPhotoRef(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.log.Info("photo reference cleared", slog.Int64("pet_id", id), slog.String("photo", name))
		s.publish(EventPhotoCleared, id, map[string]string{"photo": name})
	}
	return ids, nil
}

func (s *Service) view(t models.Trigger) TriggerView {
	v := TriggerView{Trigger: t, Time: t.Clock()}
	if s.sched != nil {
		if next, ok := s.sched.Next(t.ID); ok {
			v.NextFire = &next
		}
	}
	return v
}

func (s *Service) views(triggers []models.Trigger) []TriggerView {
	out := make([]TriggerView, len(triggers))
	for i, t := range triggers {
		out[i] = s.view(t)
	}
	return out
}

func (s *Service) publish(kind string, petID int64, data any) {
	if s.pub != nil {
		s.pub.PublishPetEvent(kind, petID, data)
	}
}

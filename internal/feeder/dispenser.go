// Package feeder couples one servo actuation with the feed bookkeeping it
// produces. It is shared by manual feeding and the trigger scheduler.
package feeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/petfeeder/internal/models"
)

// Event kinds published after a dispense attempt.
const (
	EventFed        = "fed"
	EventFeedFailed = "feed_failed"
)

// Actuator moves the servo on a channel.
type Actuator interface {
	Actuate(ctx context.Context, channel int) error
}

// Store is the persistence the dispenser needs.
type Store interface {
	GetPet(ctx context.Context, id int64) (*models.Pet, error)
	RecordFeed(ctx context.Context, petID int64, at time.Time, source string) (*models.Pet, *models.FeedRecord, error)
}

// Publisher receives pet events; nil disables publishing.
type Publisher interface {
	PublishPetEvent(kind string, petID int64, data any)
}

// Dispenser actuates the servo and records the feed.
type Dispenser struct {
	act     Actuator
	store   Store
	channel int
	clock   clockwork.Clock
	pub     Publisher
	log     *slog.Logger
}

// NewDispenser creates a dispenser for a single servo channel.
func NewDispenser(act Actuator, store Store, channel int, clock clockwork.Clock, pub Publisher, logger *slog.Logger) *Dispenser {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispenser{act: act, store: store, channel: channel, clock: clock, pub: pub, log: logger}
}

// Dispense feeds the pet once. The feed is recorded only after the
// actuation succeeded; a failed actuation leaves the pet untouched.
func (d *Dispenser) Dispense(ctx context.Context, petID int64, source string) (*models.Pet, *models.FeedRecord, error) {
	pet, err := d.store.GetPet(ctx, petID)
	if err != nil {
		return nil, nil, err
	}

	if err := d.act.Actuate(ctx, d.channel); err != nil {
		d.log.Warn("feed: actuation failed",
			slog.Int64("pet_id", petID),
			slog.String("source", source),
			slog.String("error", err.Error()))
		d.publish(EventFeedFailed, petID, map[string]string{"source": source, "error": err.Error()})
		return nil, nil, fmt.Errorf("feed pet %d: %w", petID, err)
	}

	updated, rec, err := d.store.RecordFeed(ctx, petID, d.clock.Now(), source)
	if err != nil {
		d.log.Error("feed: record failed after actuation",
			slog.Int64("pet_id", petID),
			slog.String("error", err.Error()))
		return nil, nil, err
	}

	d.log.Info("feed: pet fed",
		slog.Int64("pet_id", petID),
		slog.String("name", pet.Name),
		slog.String("source", source),
		slog.Int64("feed_count", updated.FeedCount),
		slog.String("level", updated.Level))
	d.publish(EventFed, petID, map[string]any{
		"source":     source,
		"feed_count": updated.FeedCount,
		"experience": updated.Experience,
		"level":      updated.Level,
	})
	return updated, rec, nil
}

func (d *Dispenser) publish(kind string, petID int64, data any) {
	if d.pub != nil {
		d.pub.PublishPetEvent(kind, petID, data)
	}
}

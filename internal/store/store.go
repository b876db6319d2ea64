package store

import (
	"context"
	"time"

	"github.com/starford/petfeeder/internal/models"
)

// PetStore defines the persistence operations used by the feeder core.
type PetStore interface {
	CreatePet(ctx context.Context, name string, age int, photo string) (*models.Pet, error)
	GetPet(ctx context.Context, id int64) (*models.Pet, error)
	ListPets(ctx context.Context) ([]models.Pet, error)
	DeletePet(ctx context.Context, id int64) error
	SetPhoto(ctx context.Context, id int64, photo string) error
	ClearPhotoRef(ctx context.Context, photo string) ([]int64, error)

	RecordFeed(ctx context.Context, petID int64, at time.Time, source string) (*models.Pet, *models.FeedRecord, error)
	FeedStatistics(ctx context.Context, petID int64, period models.Period, now time.Time) (int, error)
	ListFeeds(ctx context.Context, petID int64, limit int) ([]models.FeedRecord, error)

	InsertTrigger(ctx context.Context, petID int64, hour, minute int) (*models.Trigger, error)
	GetTrigger(ctx context.Context, id int64) (*models.Trigger, error)
	DeleteTrigger(ctx context.Context, id int64) (bool, error)
	ListTriggers(ctx context.Context, petID int64) ([]models.Trigger, error)
	AllTriggers(ctx context.Context) ([]models.Trigger, error)
	DeleteTriggersForPet(ctx context.Context, petID int64) error

	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies PetStore at compile time.
var _ PetStore = (*DB)(nil)

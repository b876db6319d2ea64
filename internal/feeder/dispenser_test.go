package feeder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/models"
	"github.com/starford/petfeeder/internal/testutil"
)

type stubActuator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *stubActuator) Actuate(_ context.Context, _ int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishPetEvent(kind string, petID int64, _ any) {
	p.mu.Lock()
	p.events = append(p.events, fmt.Sprintf("%s:%d", kind, petID))
	p.mu.Unlock()
}

func TestDispense_Success(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	pet, _ := db.CreatePet(ctx, "Rex", 3, "")
	act := &stubActuator{}
	pub := &recordingPublisher{}
	d := NewDispenser(act, db, 18, nil, pub, testutil.Logger())

	updated, rec, err := d.Dispense(ctx, pet.ID, models.SourceManual)
	if err != nil {
		t.Fatalf("Dispense: %v", err)
	}
	if updated.FeedCount != 1 || updated.Experience != 1 || updated.Level != "Nováčik" {
		t.Errorf("pet = %+v", updated)
	}
	if rec.PetID != pet.ID || rec.Source != models.SourceManual {
		t.Errorf("record = %+v", rec)
	}
	if act.calls != 1 {
		t.Errorf("actuations = %d", act.calls)
	}
	if len(pub.events) != 1 || pub.events[0] != fmt.Sprintf("fed:%d", pet.ID) {
		t.Errorf("events = %v", pub.events)
	}
}

func TestDispense_HardwareFailureRecordsNothing(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	pet, _ := db.CreatePet(ctx, "Rex", 3, "")
	act := &stubActuator{err: fmt.Errorf("%w: busy", apperr.ErrHardwareUnavailable)}
	pub := &recordingPublisher{}
	d := NewDispenser(act, db, 18, nil, pub, testutil.Logger())

	_, _, err := d.Dispense(ctx, pet.ID, models.SourceSchedule)
	if !errors.Is(err, apperr.ErrHardwareUnavailable) {
		t.Fatalf("err = %v, want ErrHardwareUnavailable", err)
	}
	got, _ := db.GetPet(ctx, pet.ID)
	if got.FeedCount != 0 || got.Experience != 0 {
		t.Errorf("feed recorded despite failure: %+v", got)
	}
	if len(pub.events) != 1 || pub.events[0] != fmt.Sprintf("feed_failed:%d", pet.ID) {
		t.Errorf("events = %v", pub.events)
	}
}

func TestDispense_UnknownPetSkipsActuation(t *testing.T) {
	db := testutil.TestDB(t)
	act := &stubActuator{}
	d := NewDispenser(act, db, 18, nil, nil, testutil.Logger())

	if _, _, err := d.Dispense(context.Background(), 404, models.SourceManual); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if act.calls != 0 {
		t.Error("servo moved for an unknown pet")
	}
}

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/petfeeder/internal/apperr"
	"github.com/starford/petfeeder/internal/testutil"
)

func TestAddTrigger_DuplicateRejected(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	pet, _ := db.CreatePet(ctx, "Rex", 3, "")
	reg := New(db)

	if _, err := reg.AddTrigger(ctx, pet.ID, 8, 0); err != nil {
		t.Fatalf("AddTrigger: %v", err)
	}
	_, err := reg.AddTrigger(ctx, pet.ID, 8, 0)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second AddTrigger err = %v, want ErrAlreadyExists", err)
	}
	list, _ := reg.ListTriggers(ctx, pet.ID)
	if len(list) != 1 {
		t.Errorf("triggers = %d, want exactly 1", len(list))
	}
}

func TestAddTrigger_OutOfRange(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	pet, _ := db.CreatePet(ctx, "Rex", 3, "")
	reg := New(db)

	for _, hm := range [][2]int{{24, 0}, {-1, 0}, {8, 60}, {8, -5}} {
		if _, err := reg.AddTrigger(ctx, pet.ID, hm[0], hm[1]); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("AddTrigger(%d, %d) err = %v, want ErrValidation", hm[0], hm[1], err)
		}
	}
}

func TestAddTrigger_UnknownPet(t *testing.T) {
	reg := New(testutil.TestDB(t))
	if _, err := reg.AddTrigger(context.Background(), 123, 8, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveTrigger_NoopWhenMissing(t *testing.T) {
	reg := New(testutil.TestDB(t))
	removed, err := reg.RemoveTrigger(context.Background(), 555)
	if err != nil {
		t.Fatalf("RemoveTrigger on missing id: %v", err)
	}
	if removed {
		t.Error("nothing should have been removed")
	}
}

func TestRemoveAllForPet(t *testing.T) {
	db := testutil.TestDB(t)
	ctx := context.Background()
	rex, _ := db.CreatePet(ctx, "Rex", 3, "")
	mia, _ := db.CreatePet(ctx, "Mia", 1, "")
	reg := New(db)

	_, _ = reg.AddTrigger(ctx, rex.ID, 8, 0)
	_, _ = reg.AddTrigger(ctx, rex.ID, 20, 0)
	_, _ = reg.AddTrigger(ctx, mia.ID, 8, 0)

	if err := reg.RemoveAllForPet(ctx, rex.ID); err != nil {
		t.Fatalf("RemoveAllForPet: %v", err)
	}
	all, _ := reg.All(ctx)
	if len(all) != 1 || all[0].PetID != mia.ID {
		t.Errorf("remaining = %+v", all)
	}
}

package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/petfeeder/internal/actuator"
	"github.com/starford/petfeeder/internal/feeder"
	"github.com/starford/petfeeder/internal/models"
	"github.com/starford/petfeeder/internal/petservice"
	"github.com/starford/petfeeder/internal/registry"
	"github.com/starford/petfeeder/internal/store"
	"github.com/starford/petfeeder/internal/testutil"
)

func testServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	_, photos := testutil.TestPhotos(t)
	logger := testutil.Logger()

	act := actuator.New(actuator.NewSimulatedDriver(logger), actuator.Config{
		FeedPulseUS: 1000,
		RestPulseUS: 2000,
		Dwell:       time.Millisecond,
	}, nil, logger)
	svc := petservice.NewService(petservice.Deps{
		Store:     db,
		Registry:  registry.New(db),
		Dispenser: feeder.NewDispenser(act, db, 18, nil, nil, logger),
		Photos:    photos,
		Logger:    logger,
	}, petservice.Config{})
	return New(svc, time.UTC, "test"), db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_pets":
		result, err = srv.listPets(ctx, req)
	case "create_pet":
		result, err = srv.createPet(ctx, req)
	case "feed_now":
		result, err = srv.feedNow(ctx, req)
	case "schedule_feeding":
		result, err = srv.scheduleFeeding(ctx, req)
	case "list_triggers":
		result, err = srv.listTriggers(ctx, req)
	case "delete_trigger":
		result, err = srv.deleteTrigger(ctx, req)
	case "feed_statistics":
		result, err = srv.feedStatistics(ctx, req)
	case "recent_feeds":
		result, err = srv.recentFeeds(ctx, req)
	case "set_pet_photo":
		result, err = srv.setPetPhoto(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustPet(t *testing.T, db *store.DB, name string) *models.Pet {
	t.Helper()
	p, err := db.CreatePet(context.Background(), name, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestListPets(t *testing.T) {
	srv, db := testServer(t)
	if got := resultText(callTool(t, srv, "list_pets", nil)); got != "no pets registered" {
		t.Errorf("empty list = %q", got)
	}
	mustPet(t, db, "Rex")
	got := resultText(callTool(t, srv, "list_pets", nil))
	if !strings.Contains(got, "Rex") || !strings.Contains(got, "Nováčik") {
		t.Errorf("list = %q", got)
	}
}

func TestCreatePet(t *testing.T) {
	srv, db := testServer(t)
	r := callTool(t, srv, "create_pet", map[string]any{"name": "Mia", "age": float64(4)})
	if r.IsError {
		t.Fatalf("create_pet error: %s", resultText(r))
	}
	pets, _ := db.ListPets(context.Background())
	if len(pets) != 1 || pets[0].Name != "Mia" || pets[0].Age != 4 {
		t.Errorf("pets = %+v", pets)
	}

	r = callTool(t, srv, "create_pet", map[string]any{"name": "  "})
	if !r.IsError {
		t.Error("expected error for blank name")
	}
}

func TestFeedNow(t *testing.T) {
	srv, db := testServer(t)
	rex := mustPet(t, db, "Rex")

	r := callTool(t, srv, "feed_now", map[string]any{"pet_id": float64(rex.ID)})
	if r.IsError {
		t.Fatalf("feed_now error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, "fed Rex") || !strings.Contains(text, "9 XP to Zvedavec") {
		t.Errorf("feed_now = %q", text)
	}

	r = callTool(t, srv, "feed_now", map[string]any{"pet_id": float64(404)})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("unknown pet = %q (error %v)", resultText(r), r.IsError)
	}
}

func TestScheduleListDeleteTrigger(t *testing.T) {
	srv, db := testServer(t)
	rex := mustPet(t, db, "Rex")

	r := callTool(t, srv, "schedule_feeding", map[string]any{"pet_id": float64(rex.ID), "time": "08:00"})
	if r.IsError {
		t.Fatalf("schedule_feeding error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "daily at 08:00") {
		t.Errorf("schedule_feeding = %q", resultText(r))
	}

	r = callTool(t, srv, "schedule_feeding", map[string]any{"pet_id": float64(rex.ID), "time": "08:00"})
	if !r.IsError {
		t.Error("duplicate trigger should fail")
	}

	r = callTool(t, srv, "list_triggers", map[string]any{"pet_id": float64(rex.ID)})
	if !strings.Contains(resultText(r), "08:00 (next ") {
		t.Errorf("list_triggers = %q", resultText(r))
	}

	triggers, _ := db.ListTriggers(context.Background(), rex.ID)
	r = callTool(t, srv, "delete_trigger", map[string]any{"trigger_id": float64(triggers[0].ID)})
	if r.IsError {
		t.Fatalf("delete_trigger error: %s", resultText(r))
	}
	r = callTool(t, srv, "list_triggers", map[string]any{"pet_id": float64(rex.ID)})
	if resultText(r) != "no feeding times scheduled" {
		t.Errorf("list after delete = %q", resultText(r))
	}
}

func TestFeedStatistics(t *testing.T) {
	srv, db := testServer(t)
	rex := mustPet(t, db, "Rex")
	ctx := context.Background()
	now := time.Now()
	_, _, _ = db.RecordFeed(ctx, rex.ID, now.Add(-2*time.Hour), models.SourceManual)
	_, _, _ = db.RecordFeed(ctx, rex.ID, now.Add(-30*time.Hour), models.SourceSchedule)

	r := callTool(t, srv, "feed_statistics", map[string]any{"pet_id": float64(rex.ID), "period": "day"})
	if resultText(r) != "1 feedings (day)" {
		t.Errorf("day = %q", resultText(r))
	}
	r = callTool(t, srv, "feed_statistics", map[string]any{"pet_id": float64(rex.ID)})
	if resultText(r) != "2 feedings (week)" {
		t.Errorf("default = %q", resultText(r))
	}
	r = callTool(t, srv, "feed_statistics", map[string]any{"pet_id": float64(rex.ID), "period": "decade"})
	if !r.IsError {
		t.Error("unknown period should fail")
	}

	r = callTool(t, srv, "recent_feeds", map[string]any{"pet_id": float64(rex.ID)})
	lines := strings.Split(resultText(r), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "2 hours ago") {
		t.Errorf("recent_feeds = %q", resultText(r))
	}
}

func TestSetPetPhoto(t *testing.T) {
	srv, db := testServer(t)
	rex := mustPet(t, db, "Rex")

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	r := callTool(t, srv, "set_pet_photo", map[string]any{"pet_id": float64(rex.ID), "url": uri})
	if r.IsError {
		t.Fatalf("set_pet_photo error: %s", resultText(r))
	}
	got, _ := db.GetPet(context.Background(), rex.ID)
	if !strings.HasSuffix(got.Photo, ".png") {
		t.Errorf("photo = %q", got.Photo)
	}

	text := "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))
	if r := callTool(t, srv, "set_pet_photo", map[string]any{"pet_id": float64(rex.ID), "url": text}); !r.IsError {
		t.Error("non-image content should fail")
	}
	if r := callTool(t, srv, "set_pet_photo", map[string]any{"pet_id": float64(rex.ID), "url": "http://127.0.0.1/x.png"}); !r.IsError {
		t.Error("loopback URL should be blocked")
	}
	if r := callTool(t, srv, "set_pet_photo", map[string]any{"pet_id": float64(rex.ID), "url": "ftp://example.com/x.png"}); !r.IsError {
		t.Error("ftp scheme should fail")
	}
}

func TestLevelTable(t *testing.T) {
	table := LevelTable()
	for _, l := range models.Levels {
		if !strings.Contains(table, l.Label) {
			t.Errorf("level table missing %q", l.Label)
		}
	}
}

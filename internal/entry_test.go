package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/petfeeder/internal/actuator"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(dir, "feeder.db")
	cfg.Photos.Dir = filepath.Join(dir, "photos")
	cfg.Servo.Dwell = time.Millisecond
	return cfg
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestOpenCore_FeedsThroughDriver(t *testing.T) {
	var logs bytes.Buffer
	drv := actuator.NewSimulatedDriver(nil)
	app, err := newApplication([]Option{
		WithConfig(testConfig(t)),
		WithDriver(drv),
		WithLogOutput(&logs),
	})
	if err != nil {
		t.Fatal(err)
	}
	logger := app.newLogger()

	c, err := app.openCore(logger, nil)
	if err != nil {
		t.Fatalf("openCore: %v", err)
	}
	defer c.db.Close()

	svc := c.service(app.config, nil, nil, logger)
	ctx := context.Background()
	pet, err := svc.CreatePet(ctx, "Rex", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	fed, _, err := svc.FeedNow(ctx, pet.ID)
	if err != nil {
		t.Fatalf("FeedNow: %v", err)
	}
	if fed.FeedCount != 1 {
		t.Errorf("feed_count = %d", fed.FeedCount)
	}
	moves := drv.Moves()
	if len(moves) != 2 || moves[0].Channel != 18 {
		t.Errorf("moves = %+v", moves)
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"msg":"feed: pet fed"`)) {
		t.Errorf("feed not logged: %s", logs.String())
	}
	if err := c.db.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	// The servo lock file lives next to the database by default.
	lock := filepath.Join(filepath.Dir(app.config.SQLite.Path), "servo-ch18.lock")
	if _, err := os.Stat(lock); err != nil {
		t.Errorf("servo lock file: %v", err)
	}
}

func TestServoDriver_Selection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Servo.Driver = DriverPigpio
	cfg.Servo.Address = "127.0.0.1:8888"
	app, _ := newApplication([]Option{WithConfig(cfg), WithLogOutput(&bytes.Buffer{})})
	if _, ok := app.servoDriver(app.newLogger()).(*actuator.PigpioDriver); !ok {
		t.Error("pigpio driver expected")
	}

	cfg.Servo.Driver = DriverSimulated
	if _, ok := app.servoDriver(app.newLogger()).(*actuator.SimulatedDriver); !ok {
		t.Error("simulated driver expected")
	}
}

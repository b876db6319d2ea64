package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgconfig "github.com/starford/petfeeder/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestServoConfig_Validation(t *testing.T) {
	cases := map[string]func(c *ServoConfig){
		"unknown driver":       func(c *ServoConfig) { c.Driver = "gpiozero" },
		"pigpio without addr":  func(c *ServoConfig) { c.Driver = DriverPigpio; c.Address = "" },
		"pulse too wide":       func(c *ServoConfig) { c.FeedPulseUS = 3000 },
		"pulse missing":        func(c *ServoConfig) { c.RestPulseUS = 0 },
		"channel out of range": func(c *ServoConfig) { c.Channel = 40 },
		"negative dwell":       func(c *ServoConfig) { c.Dwell = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			mutate(&cfg.Servo)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestHTTPConfig_Validation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 should fail validation")
	}
}

func TestFeedingConfig_Validation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Feeding.ManualInterval = -time.Minute
	if err := cfg.Validate(); err == nil {
		t.Error("negative interval should fail validation")
	}
}

func TestServoConfig_Actuator(t *testing.T) {
	s := NewDefaultConfig().Servo
	a := s.Actuator()
	if a.FeedPulseUS != 1000 || a.RestPulseUS != 2000 || a.Dwell != 400*time.Millisecond || a.AcquireTimeout != 2*time.Second {
		t.Errorf("actuator config = %+v", a)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("PETFEEDER_PIGPIO", "raspberrypi.local:8888")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: ${PETFEEDER_PORT:-9090}
sqlite:
  path: ${PETFEEDER_DB:-./feeder.db}
servo:
  driver: pigpio
  address: ${PETFEEDER_PIGPIO}
  channel: 17
  feed_pulse_us: 1100
  rest_pulse_us: 1900
  dwell: 250ms
  acquire_timeout: 1s
scheduler:
  timezone: Europe/Bratislava
photos:
  dir: ./photos
feeding:
  manual_interval: 10m
  manual_burst: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want default 9090", cfg.App.HTTP.Port)
	}
	if cfg.Servo.Address != "raspberrypi.local:8888" || cfg.Servo.Channel != 17 {
		t.Errorf("servo = %+v", cfg.Servo)
	}
	if cfg.Servo.Dwell != 250*time.Millisecond {
		t.Errorf("dwell = %v", cfg.Servo.Dwell)
	}
	if cfg.Feeding.ManualInterval != 10*time.Minute || cfg.Feeding.ManualBurst != 2 {
		t.Errorf("feeding = %+v", cfg.Feeding)
	}
	if cfg.Scheduler.ResyncInterval != time.Minute {
		t.Errorf("resync interval default lost: %v", cfg.Scheduler.ResyncInterval)
	}
}

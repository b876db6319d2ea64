package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/petfeeder/internal/actuator"
)

// Servo drivers.
const (
	DriverPigpio    = "pigpio"
	DriverSimulated = "simulated"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Servo     ServoConfig       `yaml:"servo"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	Photos    PhotosConfig      `yaml:"photos"`
	Feeding   FeedingConfig     `yaml:"feeding"`
	Events    EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.SQLite, &c.Servo, &c.Scheduler, &c.Photos, &c.Feeding} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ServoConfig describes the feeder servo and how to reach it.
//
// Driver "pigpio" talks to pigpiod at Address; "simulated" only logs the
// moves and is meant for development machines.
type ServoConfig struct {
	Driver         string        `yaml:"driver"`
	Address        string        `yaml:"address"`
	Channel        int           `yaml:"channel"`
	FeedPulseUS    int           `yaml:"feed_pulse_us"`
	RestPulseUS    int           `yaml:"rest_pulse_us"`
	Dwell          time.Duration `yaml:"dwell"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`

	// LockDir holds the per-channel lock files shared by the daemon and the
	// MCP server. Empty means the directory of the SQLite database.
	LockDir string `yaml:"lock_dir"`
}

// Validate validates the servo configuration.
func (c *ServoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverPigpio, DriverSimulated)),
		validation.Field(&c.Address, validation.When(c.Driver == DriverPigpio, validation.Required)),
		validation.Field(&c.Channel, validation.Min(0), validation.Max(31)),
		validation.Field(&c.FeedPulseUS, validation.Required, validation.Min(500), validation.Max(2500)),
		validation.Field(&c.RestPulseUS, validation.Required, validation.Min(500), validation.Max(2500)),
		validation.Field(&c.Dwell, validation.Min(time.Duration(0))),
		validation.Field(&c.AcquireTimeout, validation.Min(time.Duration(0))),
	)
}

// Actuator converts the servo section into the actuator motion config.
func (c *ServoConfig) Actuator() actuator.Config {
	return actuator.Config{
		FeedPulseUS:    c.FeedPulseUS,
		RestPulseUS:    c.RestPulseUS,
		Dwell:          c.Dwell,
		AcquireTimeout: c.AcquireTimeout,
		LockDir:        c.LockDir,
	}
}

// SchedulerConfig holds trigger scheduling configuration.
type SchedulerConfig struct {
	// Timezone is the IANA zone trigger times are interpreted in; empty
	// means the host's local zone.
	Timezone string `yaml:"timezone"`

	// ResyncInterval re-reads the trigger table so triggers added by other
	// processes (the MCP server) get armed.
	ResyncInterval time.Duration `yaml:"resync_interval"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ResyncInterval, validation.Min(time.Duration(0))),
	)
}

// PhotosConfig holds the pet photo directory.
type PhotosConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the photo configuration.
func (c *PhotosConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// FeedingConfig limits manual feeding per pet. A zero interval disables it.
type FeedingConfig struct {
	ManualInterval time.Duration `yaml:"manual_interval"`
	ManualBurst    int           `yaml:"manual_burst"`
}

// Validate validates the feeding configuration.
func (c *FeedingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ManualInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.ManualBurst, validation.Min(0)),
	)
}

// EventsConfig tunes the SSE stream.
type EventsConfig struct {
	StatsThrottle time.Duration `yaml:"stats_throttle"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./petfeeder.db",
		},
		Servo: ServoConfig{
			Driver:         DriverSimulated,
			Address:        "localhost:8888",
			Channel:        18,
			FeedPulseUS:    1000,
			RestPulseUS:    2000,
			Dwell:          400 * time.Millisecond,
			AcquireTimeout: 2 * time.Second,
			DialTimeout:    2 * time.Second,
		},
		Scheduler: SchedulerConfig{
			ResyncInterval: time.Minute,
		},
		Photos: PhotosConfig{
			Dir: "./uploads",
		},
		Feeding: FeedingConfig{
			ManualBurst: 1,
		},
		Events: EventsConfig{
			StatsThrottle: 2 * time.Second,
		},
	}
}

package internal

import (
	"io"

	"github.com/jonboulle/clockwork"

	"github.com/starford/petfeeder/internal/actuator"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	driver    actuator.Driver
	clock     clockwork.Clock
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithDriver overrides the servo driver selected by the configuration.
func WithDriver(d actuator.Driver) Option {
	return func(a *application) {
		a.driver = d
	}
}

// WithClock replaces the wall clock used for scheduling and feed times.
func WithClock(c clockwork.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}

// WithLogOutput redirects the JSON log stream (stdout by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

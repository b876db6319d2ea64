// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/starford/petfeeder/internal/actuator"
	"github.com/starford/petfeeder/internal/api"
	"github.com/starford/petfeeder/internal/feeder"
	"github.com/starford/petfeeder/internal/mcpserver"
	"github.com/starford/petfeeder/internal/petservice"
	"github.com/starford/petfeeder/internal/registry"
	"github.com/starford/petfeeder/internal/scheduler"
	"github.com/starford/petfeeder/internal/sse"
	"github.com/starford/petfeeder/internal/storage"
	"github.com/starford/petfeeder/internal/store"
)

// Version is reported by the MCP server.
var Version = "dev"

// core holds the components shared by the HTTP daemon and the MCP server.
type core struct {
	db     store.PetStore
	photos *storage.FS
	reg    *registry.Registry
	disp   *feeder.Dispenser
	loc    *time.Location
	clock  clockwork.Clock
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.clock == nil {
		app.clock = clockwork.NewRealClock()
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

func (a *application) servoDriver(logger *slog.Logger) actuator.Driver {
	if a.driver != nil {
		return a.driver
	}
	cfg := a.config.Servo
	if cfg.Driver == DriverPigpio {
		return actuator.NewPigpioDriver(cfg.Address, cfg.DialTimeout)
	}
	logger.Warn("servo driver is simulated, no hardware will move")
	return actuator.NewSimulatedDriver(logger)
}

// openCore opens the database and photo directory and wires the feeding
// path. pub may be nil.
func (a *application) openCore(logger *slog.Logger, pub feeder.Publisher) (*core, error) {
	cfg := a.config

	photos, err := storage.NewFS(cfg.Photos.Dir)
	if err != nil {
		return nil, fmt.Errorf("init photos: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	acfg := cfg.Servo.Actuator()
	if acfg.LockDir == "" {
		acfg.LockDir = filepath.Dir(cfg.SQLite.Path)
	}
	act := actuator.New(a.servoDriver(logger), acfg, a.clock, logger)
	return &core{
		db:     db,
		photos: photos,
		reg:    registry.New(db),
		disp:   feeder.NewDispenser(act, db, cfg.Servo.Channel, a.clock, pub, logger),
		loc:    scheduler.LoadLocation(cfg.Scheduler.Timezone, logger),
		clock:  a.clock,
	}, nil
}

func (c *core) service(cfg *Config, sched petservice.Scheduler, pub petservice.Publisher, logger *slog.Logger) *petservice.Service {
	return petservice.NewService(petservice.Deps{
		Store:     c.db,
		Registry:  c.reg,
		Scheduler: sched,
		Dispenser: c.disp,
		Photos:    c.photos,
		Publisher: pub,
		Clock:     c.clock,
		Logger:    logger,
	}, petservice.Config{
		ManualInterval: cfg.Feeding.ManualInterval,
		ManualBurst:    cfg.Feeding.ManualBurst,
	})
}

// Run starts the feeder daemon: HTTP API, trigger scheduler and photo
// watcher, until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("photos_dir", cfg.Photos.Dir),
		slog.String("servo_driver", cfg.Servo.Driver),
		slog.Int("servo_channel", cfg.Servo.Channel),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Events.StatsThrottle, app.clock)
	defer broker.Close()

	c, err := app.openCore(logger, broker)
	if err != nil {
		return err
	}
	defer c.db.Close()

	sched := scheduler.New(c.reg, c.disp, c.clock, c.loc, logger)
	svc := c.service(cfg, sched, broker, logger)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, c.photos, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return storage.Watch(gCtx, c.photos.Root(), logger, func(name string) {
			if _, err := svc.ClearPhoto(gCtx, name); err != nil {
				logger.Warn("photo watcher: clear reference failed",
					slog.String("photo", name),
					slog.String("error", err.Error()))
			}
		})
	})

	if every := cfg.Scheduler.ResyncInterval; every > 0 {
		g.Go(func() error {
			ticker := c.clock.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.Chan():
					if err := sched.Sync(gCtx); err != nil && !errors.Is(err, scheduler.ErrStopped) {
						logger.Warn("scheduler: resync failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher and resync loops
// exit once shutdown has been requested.
var errShutdown = errors.New("shutdown requested")

// RunMCP serves the feeder tools over stdio. Logs go to stderr since stdout
// carries the protocol. Triggers created here are armed by the running
// daemon on its next resync.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	slog.SetDefault(logger)

	c, err := app.openCore(logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	svc := c.service(app.config, nil, nil, logger)
	srv := mcpserver.New(svc, c.loc, Version)

	logger.Info("MCP server starting on stdio", slog.String("sqlite_path", app.config.SQLite.Path))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

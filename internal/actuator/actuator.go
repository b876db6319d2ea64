package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/starford/petfeeder/internal/apperr"
)

// Config describes the feed-and-return motion.
type Config struct {
	FeedPulseUS    int
	RestPulseUS    int
	Dwell          time.Duration
	AcquireTimeout time.Duration

	// LockDir holds the per-channel lock files shared with other
	// processes driving the same servo. Empty means in-process locks only.
	LockDir string
}

// DefaultConfig mirrors the stock 90 degree servo swing.
func DefaultConfig() Config {
	return Config{
		FeedPulseUS:    1000,
		RestPulseUS:    2000,
		Dwell:          400 * time.Millisecond,
		AcquireTimeout: 2 * time.Second,
	}
}

// Actuator performs the dispensing motion.
type Actuator struct {
	driver Driver
	locks  *ChannelLocks
	cfg    Config
	clock  clockwork.Clock
	log    *slog.Logger
}

// New creates an actuator. A nil clock means the real wall clock.
func New(driver Driver, cfg Config, clock clockwork.Clock, logger *slog.Logger) *Actuator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Actuator{
		driver: driver,
		locks:  NewChannelLocks(cfg.LockDir),
		cfg:    cfg,
		clock:  clock,
		log:    logger,
	}
}

// Actuate moves the servo on channel to the feed position, holds it for the
// dwell duration and returns it to rest. Calls on the same channel are
// serialised; a channel that cannot be acquired within AcquireTimeout, or
// any driver failure, yields apperr.ErrHardwareUnavailable.
func (a *Actuator) Actuate(ctx context.Context, channel int) error {
	acquireCtx := ctx
	if a.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, a.cfg.AcquireTimeout)
		defer cancel()
	}
	release, err := a.locks.Acquire(acquireCtx, channel)
	if err != nil {
		return fmt.Errorf("%w: channel %d busy: %v", apperr.ErrHardwareUnavailable, channel, err)
	}
	defer release()

	conn, err := a.driver.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrHardwareUnavailable, err)
	}
	defer conn.Close()

	start := a.clock.Now()
	if err := a.motion(conn, channel); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrHardwareUnavailable, err)
	}
	a.log.Debug("servo: actuated",
		slog.Int("channel", channel),
		slog.Duration("took", a.clock.Since(start)))
	return nil
}

func (a *Actuator) motion(conn Conn, channel int) error {
	if err := conn.SetOutput(channel); err != nil {
		return err
	}
	if err := conn.SetServoPulseWidth(channel, a.cfg.FeedPulseUS); err != nil {
		return err
	}
	a.clock.Sleep(a.cfg.Dwell)
	return conn.SetServoPulseWidth(channel, a.cfg.RestPulseUS)
}

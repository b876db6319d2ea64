package actuator

import (
	"context"
	"log/slog"
	"sync"
)

// Move is one pulse-width change observed by the simulated driver.
type Move struct {
	Channel int
	WidthUS int
}

// SimulatedDriver records servo moves in memory instead of touching hardware.
type SimulatedDriver struct {
	log *slog.Logger

	mu    sync.Mutex
	moves []Move
	fail  error
}

// NewSimulatedDriver creates a driver that logs every move at debug level.
func NewSimulatedDriver(logger *slog.Logger) *SimulatedDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulatedDriver{log: logger}
}

// FailWith makes subsequent Open calls return err (nil clears it).
func (d *SimulatedDriver) FailWith(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

// Moves returns a copy of the recorded moves.
func (d *SimulatedDriver) Moves() []Move {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Move, len(d.moves))
	copy(out, d.moves)
	return out
}

func (d *SimulatedDriver) Open(_ context.Context) (Conn, error) {
	d.mu.Lock()
	err := d.fail
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &simulatedConn{d: d}, nil
}

type simulatedConn struct {
	d *SimulatedDriver
}

func (c *simulatedConn) SetOutput(channel int) error {
	c.d.log.Debug("servo: set output", slog.Int("channel", channel))
	return nil
}

func (c *simulatedConn) SetServoPulseWidth(channel, widthUS int) error {
	c.d.mu.Lock()
	c.d.moves = append(c.d.moves, Move{Channel: channel, WidthUS: widthUS})
	c.d.mu.Unlock()
	c.d.log.Debug("servo: pulse width", slog.Int("channel", channel), slog.Int("width_us", widthUS))
	return nil
}

func (c *simulatedConn) Close() error { return nil }

// Package actuator drives the feeding servo: a feed-and-return pulse-width
// motion on a single output channel, serialised per channel.
package actuator

import "context"

// Driver opens connections to the pulse-width hardware.
type Driver interface {
	Open(ctx context.Context) (Conn, error)
}

// Conn is one session with the hardware. Closing it releases the session,
// not the servo position.
type Conn interface {
	SetOutput(channel int) error
	SetServoPulseWidth(channel, widthUS int) error
	Close() error
}

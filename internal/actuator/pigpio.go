package actuator

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// pigpio daemon socket commands.
const (
	pigpioCmdModes = 0
	pigpioCmdServo = 8

	pigpioModeOutput = 1
)

// PigpioDriver talks to a pigpiod daemon over its TCP socket interface.
type PigpioDriver struct {
	Address string
	Timeout time.Duration
}

// NewPigpioDriver creates a driver for the daemon at address (host:port).
func NewPigpioDriver(address string, timeout time.Duration) *PigpioDriver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PigpioDriver{Address: address, Timeout: timeout}
}

// Open dials the daemon.
func (d *PigpioDriver) Open(ctx context.Context) (Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	c, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("pigpio: dial %s: %w", d.Address, err)
	}
	return &pigpioConn{conn: c, timeout: d.Timeout}, nil
}

type pigpioConn struct {
	conn    net.Conn
	timeout time.Duration
}

// command sends one 16-byte request and reads the 16-byte reply. The last
// word of the reply is the result; negative values are pigpio error codes.
func (c *pigpioConn) command(cmd, p1, p2 uint32) error {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	var req [16]byte
	binary.LittleEndian.PutUint32(req[0:], cmd)
	binary.LittleEndian.PutUint32(req[4:], p1)
	binary.LittleEndian.PutUint32(req[8:], p2)
	binary.LittleEndian.PutUint32(req[12:], 0)
	if _, err := c.conn.Write(req[:]); err != nil {
		return fmt.Errorf("pigpio: write cmd %d: %w", cmd, err)
	}
	var resp [16]byte
	if _, err := io.ReadFull(c.conn, resp[:]); err != nil {
		return fmt.Errorf("pigpio: read cmd %d: %w", cmd, err)
	}
	if res := int32(binary.LittleEndian.Uint32(resp[12:])); res < 0 {
		return fmt.Errorf("pigpio: cmd %d failed with code %d", cmd, res)
	}
	return nil
}

func (c *pigpioConn) SetOutput(channel int) error {
	return c.command(pigpioCmdModes, uint32(channel), pigpioModeOutput)
}

func (c *pigpioConn) SetServoPulseWidth(channel, widthUS int) error {
	return c.command(pigpioCmdServo, uint32(channel), uint32(widthUS))
}

func (c *pigpioConn) Close() error {
	return c.conn.Close()
}

// Package yahboom drives the four-wheel motor board found on the Yahboom
// Raspberry Pi car.  The board sits at 0x16 on I2C bus 1 and takes a
// direction and a speed for each side.
package yahboom

import (
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

const (
	DefaultBus = "/dev/i2c-1"
	Addr       = 0x16

	RegMotors = 0x01
	RegStop   = 0x02

	dirBackward = 0x00
	dirForward  = 0x01

	maxRetries = 5
)

type Car struct {
	dev    *i2c.Dev
	closer io.Closer

	newBackOff func() backoff.BackOff
}

var _ motion.Interface = (*Car)(nil)

// Open initialises periph and opens the named bus ("" picks the first one).
func Open(busName string) (*Car, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph init")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "open I2C bus %q", busName)
	}
	c := New(bus)
	c.closer = bus
	return c, nil
}

func New(bus i2c.Bus) *Car {
	return &Car{
		dev: &i2c.Dev{Bus: bus, Addr: Addr},
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = time.Millisecond
			bo.MaxInterval = 20 * time.Millisecond
			return bo
		},
	}
}

func (c *Car) Run(left, right motion.Speed) error {
	return c.drive(dirForward, left, dirForward, right)
}

func (c *Car) SpinLeft(left, right motion.Speed) error {
	return c.drive(dirBackward, left, dirForward, right)
}

func (c *Car) SpinRight(left, right motion.Speed) error {
	return c.drive(dirForward, left, dirBackward, right)
}

func (c *Car) Stop() error {
	return c.writeWithRetries([]byte{RegStop, 0x00})
}

func (c *Car) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *Car) drive(leftDir byte, left motion.Speed, rightDir byte, right motion.Speed) error {
	return c.writeWithRetries([]byte{RegMotors, leftDir, byte(left), rightDir, byte(right)})
}

func (c *Car) writeWithRetries(data []byte) error {
	tries := 0
	err := backoff.Retry(func() error {
		tries++
		err := c.dev.Tx(data, nil)
		if err != nil {
			fmt.Println("Failed to program motor board:", err)
		}
		return err
	}, backoff.WithMaxRetries(c.newBackOff(), maxRetries-1))
	if err != nil {
		return errors.Wrapf(err, "motor board write %x failed after %d tries", data, tries)
	}
	if tries > 1 {
		fmt.Println("Successfully programmed motor board after retries")
	}
	return nil
}

package motion

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrHalted is returned for commands sent after Halt.
var ErrHalted = errors.New("motors halted")

// Halter is implemented by motors that can be brought to a final stop.
type Halter interface {
	Halt() error
}

// Guard serialises access to the motors and lets a second goroutine (the
// signal handler) stop them for good while the owner is stuck elsewhere.
// The final stop is sent once, whoever asks first.
type Guard struct {
	lock   sync.Mutex
	motors Interface
	halted bool
}

var _ Interface = (*Guard)(nil)
var _ Halter = (*Guard)(nil)

func NewGuard(m Interface) *Guard {
	return &Guard{motors: m}
}

func (g *Guard) Run(left, right Speed) error {
	return g.send(RunCmd(left, right))
}

func (g *Guard) SpinLeft(left, right Speed) error {
	return g.send(SpinLeftCmd(left, right))
}

func (g *Guard) SpinRight(left, right Speed) error {
	return g.send(SpinRightCmd(left, right))
}

func (g *Guard) Stop() error {
	return g.send(StopCmd())
}

// Halt stops the motors and refuses every later command.  Only the first
// call reaches the motors.
func (g *Guard) Halt() error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.halted {
		return nil
	}
	g.halted = true
	return g.motors.Stop()
}

func (g *Guard) send(c Command) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.halted {
		return errors.Wrapf(ErrHalted, "dropped %v", c)
	}
	return c.Apply(g.motors)
}

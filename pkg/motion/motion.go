package motion

import (
	"fmt"
	"log"
)

// Speed is a wheel speed as understood by the motor board, 0 is stopped.
type Speed uint8

// Interface is the drive train.  Each call replaces whatever the motors were
// doing before.
type Interface interface {
	Run(left, right Speed) error
	SpinLeft(left, right Speed) error
	SpinRight(left, right Speed) error
	Stop() error
}

type Kind uint8

const (
	KindStop Kind = iota
	KindRun
	KindSpinLeft
	KindSpinRight
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "STOP"
	case KindRun:
		return "RUN"
	case KindSpinLeft:
		return "SPIN_LEFT"
	case KindSpinRight:
		return "SPIN_RIGHT"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Command is a single motion decision.
type Command struct {
	Kind        Kind
	Left, Right Speed
}

func RunCmd(left, right Speed) Command {
	return Command{Kind: KindRun, Left: left, Right: right}
}

func SpinLeftCmd(left, right Speed) Command {
	return Command{Kind: KindSpinLeft, Left: left, Right: right}
}

func SpinRightCmd(left, right Speed) Command {
	return Command{Kind: KindSpinRight, Left: left, Right: right}
}

func StopCmd() Command {
	return Command{Kind: KindStop}
}

// Apply sends the command to m.
func (c Command) Apply(m Interface) error {
	switch c.Kind {
	case KindStop:
		return m.Stop()
	case KindRun:
		return m.Run(c.Left, c.Right)
	case KindSpinLeft:
		return m.SpinLeft(c.Left, c.Right)
	case KindSpinRight:
		return m.SpinRight(c.Left, c.Right)
	default:
		panic(fmt.Errorf("unknown motion command kind %v", c.Kind))
	}
}

func (c Command) String() string {
	if c.Kind == KindStop {
		return c.Kind.String()
	}
	return fmt.Sprintf("%v(%d,%d)", c.Kind, c.Left, c.Right)
}

// Dummy logs the commands it is given.  Used when no motor board is present.
func Dummy(logger *log.Logger) Interface {
	if logger == nil {
		logger = log.Default()
	}
	return &dummyMotors{logger: logger}
}

type dummyMotors struct {
	logger *log.Logger
}

func (d *dummyMotors) Run(left, right Speed) error {
	d.logger.Printf("Dummy motors: run l=%v r=%v", left, right)
	return nil
}

func (d *dummyMotors) SpinLeft(left, right Speed) error {
	d.logger.Printf("Dummy motors: spin left l=%v r=%v", left, right)
	return nil
}

func (d *dummyMotors) SpinRight(left, right Speed) error {
	d.logger.Printf("Dummy motors: spin right l=%v r=%v", left, right)
	return nil
}

func (d *dummyMotors) Stop() error {
	d.logger.Println("Dummy motors: stop")
	return nil
}

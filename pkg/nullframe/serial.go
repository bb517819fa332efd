package nullframe

import (
	"fmt"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Serial is a Source for sensors that sit behind a microcontroller on a
// serial line and use the same NUL framing.  Unlike File, the port stays open
// between frames; it is dropped after any failure and reopened on the next
// call.
type Serial struct {
	Port string
	Baud int

	port serial.Port
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

func NewSerial(port string, baud int) *Serial {
	return &Serial{
		Port: port,
		Baud: baud,
		open: serial.Open,
	}
}

func (s *Serial) ReadFrame() ([]byte, error) {
	if s.port == nil {
		p, err := s.open(s.Port, &serial.Mode{BaudRate: s.Baud})
		if err != nil {
			var portErr *serial.PortError
			if errors.As(err, &portErr) && portErr.Code() == serial.PortNotFound {
				return nil, errors.Wrapf(ErrUnavailable, "%s", s.Port)
			}
			return nil, errors.Wrapf(ErrIO, "open %s: %v", s.Port, err)
		}
		s.port = p
	}

	frame, err := Read(s.port)
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrapf(err, "%s", s.Port)
	}
	return frame, nil
}

func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) String() string {
	return fmt.Sprintf("%s@%d", s.Port, s.Baud)
}

var _ Source = (*Serial)(nil)

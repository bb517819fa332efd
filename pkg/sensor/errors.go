package sensor

import (
	"github.com/pkg/errors"

	"github.com/tigerbot-team/avoidbot/pkg/nullframe"
)

type ErrorKind int

const (
	NoError ErrorKind = iota
	Unavailable
	IOError
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "none"
	case Unavailable:
		return "unavailable"
	case IOError:
		return "io"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// KindOf says which failure a reading error represents.  Errors that don't
// wrap one of the known sentinels count as I/O errors.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return NoError
	case errors.Is(err, nullframe.ErrUnavailable):
		return Unavailable
	case errors.Is(err, ErrMalformed):
		return Malformed
	default:
		return IOError
	}
}

// DeviceFault is true for failures that say something about the device
// itself, as opposed to what it sent.
func (k ErrorKind) DeviceFault() bool {
	return k == Unavailable || k == IOError
}

// Package nullframe reads NUL-terminated frames from sensor character devices.
//
// The SR04 and IR kernel drivers hand out one text message per read,
// terminated by a 0x00 byte.  There is no length prefix, so frames are read a
// byte at a time and never buffered past the sentinel.
package nullframe

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const Sentinel = 0x00

// Device nodes are opened read-only with the exclusive mode bit.
const (
	deviceFlag = os.O_RDONLY
	deviceMode = os.ModeExclusive
)

var (
	// ErrUnavailable means the device node does not exist (driver not loaded,
	// sensor unplugged).
	ErrUnavailable = errors.New("device unavailable")
	// ErrIO covers every other failure to open or read the device.
	ErrIO = errors.New("device I/O error")
)

// Source produces one frame per call.
type Source interface {
	ReadFrame() ([]byte, error)
	String() string
}

// Read consumes bytes from r until the sentinel or end of stream and returns
// them without the sentinel.
func Read(r io.Reader) ([]byte, error) {
	var (
		frame []byte
		buf   [1]byte
	)
	for {
		n, err := r.Read(buf[:])
		if n == 1 {
			if buf[0] == Sentinel {
				return frame, nil
			}
			frame = append(frame, buf[0])
		}
		if err == io.EOF {
			return frame, nil
		}
		if err != nil {
			return nil, errors.Wrapf(ErrIO, "read after %d bytes: %v", len(frame), err)
		}
	}
}

// ReadFile opens path, reads a single frame and closes it again.
func ReadFile(path string) ([]byte, error) {
	f, err := os.OpenFile(path, deviceFlag, deviceMode)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrUnavailable, "%s", path)
		}
		return nil, errors.Wrapf(ErrIO, "open %s: %v", path, err)
	}
	defer f.Close()

	frame, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return frame, nil
}

// File is a Source that opens the device for every frame, the way the
// drivers expect to be used.
type File struct {
	Path string
}

func (f File) ReadFrame() ([]byte, error) {
	return ReadFile(f.Path)
}

func (f File) String() string {
	return f.Path
}

var _ Source = File{}

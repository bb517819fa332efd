package motordev

import (
	"os"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
)

const DefaultDevice = "/dev/motor"

// Command numbers understood by the i2cmotor kernel module.
const (
	CmdLeft = 3 + iota
	CmdRight
	CmdForward
	CmdForwardSlow
	CmdBackward
	CmdStop
	CmdIO
)

const ioctlMagic = 'G'

// ioctlInfo mirrors struct ioctl_info in the driver header.
type ioctlInfo struct {
	size uint
	buf  [5]byte
}

const (
	iocWrite     = 1
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

// iow is the _IOW macro.
func iow(typ, nr, size uintptr) uintptr {
	return iocWrite<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift
}

func Request(cmd int) uintptr {
	return iow(ioctlMagic, uintptr(cmd), unsafe.Sizeof(ioctlInfo{}))
}

// Payload is the raw five byte frame the driver forwards to the motor board
// for CmdIO.
func Payload(leftForward bool, left motion.Speed, rightForward bool, right motion.Speed) [5]byte {
	dir := func(fwd bool) byte {
		if fwd {
			return 1
		}
		return 0
	}
	return [5]byte{0x01, dir(leftForward), byte(left), dir(rightForward), byte(right)}
}

type ioctler func(fd uintptr, req uintptr, info *ioctlInfo) error

// Motor drives the car through the kernel module's character device.  The
// device is held open for the life of the Motor.
type Motor struct {
	f     *os.File
	ioctl ioctler
}

var _ motion.Interface = (*Motor)(nil)

func Open(path string) (*Motor, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "motor device %s is not working", path)
	}
	return &Motor{f: f, ioctl: sysIoctl}, nil
}

func sysIoctl(fd uintptr, req uintptr, info *ioctlInfo) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(info)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (m *Motor) Run(left, right motion.Speed) error {
	return m.io(Payload(true, left, true, right))
}

func (m *Motor) SpinLeft(left, right motion.Speed) error {
	return m.io(Payload(false, left, true, right))
}

func (m *Motor) SpinRight(left, right motion.Speed) error {
	return m.io(Payload(true, left, false, right))
}

func (m *Motor) Stop() error {
	info := ioctlInfo{size: 5}
	return m.send(CmdStop, &info)
}

func (m *Motor) Close() error {
	return m.f.Close()
}

func (m *Motor) io(payload [5]byte) error {
	info := ioctlInfo{size: uint(len(payload)), buf: payload}
	return m.send(CmdIO, &info)
}

func (m *Motor) send(cmd int, info *ioctlInfo) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxInterval = 10 * time.Millisecond
	err := backoff.Retry(func() error {
		err := m.ioctl(m.f.Fd(), Request(cmd), info)
		if err == unix.ENOENT || err == unix.ENODEV {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(bo, 2))
	return errors.Wrapf(err, "motor ioctl %d", cmd)
}

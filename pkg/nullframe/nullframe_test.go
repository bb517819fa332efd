package nullframe

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

func TestReadStopsAtSentinel(t *testing.T) {
	for _, tc := range []struct {
		in       []byte
		expected []byte
	}{
		{[]byte("75\x00"), []byte("75")},
		{[]byte("BOTH\x00LEFT\x00"), []byte("BOTH")},
		{[]byte("\x00"), nil},
		{[]byte("123"), []byte("123")},
		{[]byte{}, nil},
		{[]byte{0xff, 0x01, 0x00, 0x02}, []byte{0xff, 0x01}},
	} {
		frame, err := Read(bytes.NewReader(tc.in))
		if err != nil {
			t.Errorf("Read(%q) returned error %v", tc.in, err)
			continue
		}
		if !bytes.Equal(frame, tc.expected) {
			t.Errorf("Read(%q) = %q, expected %q", tc.in, frame, tc.expected)
		}
	}
}

func TestReadLeavesRestOfStream(t *testing.T) {
	r := bytes.NewReader([]byte("LEFT\x00RIGHT\x00"))
	first, _ := Read(r)
	second, _ := Read(r)
	if string(first) != "LEFT" || string(second) != "RIGHT" {
		t.Fatalf("Expected LEFT then RIGHT, got %q then %q", first, second)
	}
}

type brokenReader struct {
	data []byte
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	p[0] = b.data[0]
	b.data = b.data[1:]
	return 1, nil
}

func TestReadFailureIsIOError(t *testing.T) {
	_, err := Read(&brokenReader{data: []byte("12")})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
	if errors.Is(err, ErrUnavailable) {
		t.Fatalf("I/O error must not look like an unavailable device: %v", err)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sr04")
	if err := os.WriteFile(path, []byte("42\x00garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	frame, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned %v", err)
	}
	if string(frame) != "42" {
		t.Fatalf("Expected 42, got %q", frame)
	}

	// Every call reopens the device, so the same frame comes back.
	frame, _ = File{Path: path}.ReadFrame()
	if string(frame) != "42" {
		t.Fatalf("Expected 42 on second read, got %q", frame)
	}
}

func TestReadFileOpensExclusiveReadOnly(t *testing.T) {
	if deviceFlag != os.O_RDONLY || deviceMode&os.ModeExclusive == 0 {
		t.Fatalf("Devices opened with flag %#x mode %v", deviceFlag, deviceMode)
	}
	path := filepath.Join(t.TempDir(), "ir_device")
	if err := os.WriteFile(path, []byte("BOTH\x00"), 0444); err != nil {
		t.Fatal(err)
	}
	frame, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile of a read-only node returned %v", err)
	}
	if string(frame) != "BOTH" {
		t.Fatalf("Expected BOTH, got %q", frame)
	}
}

func TestReadFileMissingIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-device")
	frame, err := ReadFile(path)
	if frame != nil {
		t.Errorf("Expected no frame, got %q", frame)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestReadFileDirectoryIsIOError(t *testing.T) {
	_, err := ReadFile(t.TempDir())
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Expected ErrIO reading a directory, got %v", err)
	}
}

type fakePort struct {
	serial.Port
	r      io.Reader
	closed bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialKeepsPortOpen(t *testing.T) {
	opens := 0
	port := &fakePort{r: bytes.NewReader([]byte("30\x0031\x00"))}
	s := NewSerial("/dev/ttyUSB0", 115200)
	s.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		opens++
		if mode.BaudRate != 115200 {
			t.Errorf("Unexpected baud rate %d", mode.BaudRate)
		}
		return port, nil
	}

	for _, expected := range []string{"30", "31"} {
		frame, err := s.ReadFrame()
		if err != nil {
			t.Fatal(err)
		}
		if string(frame) != expected {
			t.Errorf("Expected %s, got %q", expected, frame)
		}
	}
	if opens != 1 {
		t.Errorf("Expected the port to be opened once, opened %d times", opens)
	}
	_ = s.Close()
	if !port.closed {
		t.Error("Close did not close the port")
	}
}

func TestSerialReopensAfterFailure(t *testing.T) {
	opens := 0
	s := NewSerial("/dev/ttyUSB0", 9600)
	s.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		opens++
		if opens == 1 {
			return &fakePort{r: &brokenReader{}}, nil
		}
		return &fakePort{r: bytes.NewReader([]byte("BOTH\x00"))}, nil
	}

	if _, err := s.ReadFrame(); !errors.Is(err, ErrIO) {
		t.Fatalf("Expected ErrIO from broken port, got %v", err)
	}
	frame, err := s.ReadFrame()
	if err != nil || string(frame) != "BOTH" {
		t.Fatalf("Expected BOTH after reopen, got %q, %v", frame, err)
	}
	if opens != 2 {
		t.Errorf("Expected 2 opens, got %d", opens)
	}
}

func TestSerialOpenFailure(t *testing.T) {
	s := NewSerial("/dev/ttyUSB9", 9600)
	s.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		return nil, errors.New("permission denied")
	}
	if _, err := s.ReadFrame(); !errors.Is(err, ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
}

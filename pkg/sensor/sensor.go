package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/avoidbot/pkg/nullframe"
)

// ErrMalformed means the device answered but the frame could not be decoded.
var ErrMalformed = errors.New("malformed payload")

// Distance to the nearest obstacle ahead, in centimeters.
type Distance int

type Direction uint8

const (
	Unknown Direction = iota
	None
	Left
	Right
	Both
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Both:
		return "BOTH"
	case None:
		return "NONE"
	case Unknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ParseDirection maps a token to its Direction.  Anything that is not one of
// the known tokens is Unknown.
func ParseDirection(s string) Direction {
	switch s {
	case "LEFT":
		return Left
	case "RIGHT":
		return Right
	case "BOTH":
		return Both
	case "NONE":
		return None
	default:
		return Unknown
	}
}

func DecodeDistance(frame []byte) (Distance, error) {
	text := strings.TrimSpace(string(frame))
	if text == "" {
		return 0, errors.Wrap(ErrMalformed, "empty distance")
	}
	v, err := strconv.ParseUint(text, 10, 31)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformed, "distance %q: %v", text, err)
	}
	return Distance(v), nil
}

func DecodeDirection(frame []byte) (Direction, error) {
	if !utf8.Valid(frame) {
		return Unknown, errors.Wrapf(ErrMalformed, "direction %q is not UTF-8", frame)
	}
	return ParseDirection(strings.TrimSpace(string(frame))), nil
}

// Reading is the result of one poll of one sensor.  Err is nil when the value
// is usable.
type Reading struct {
	Distance  Distance
	Direction Direction
	Err       error
}

func (r Reading) Valid() bool {
	return r.Err == nil
}

// Names reported by the two sensors.
const (
	UltrasonicName = "ultrasonic"
	InfraredName   = "infrared"
)

type Ultrasonic struct {
	Source nullframe.Source
}

func (u Ultrasonic) Read() Reading {
	frame, err := u.Source.ReadFrame()
	if err != nil {
		return Reading{Direction: Unknown, Err: err}
	}
	d, err := DecodeDistance(frame)
	if err != nil {
		return Reading{Direction: Unknown, Err: errors.Wrapf(err, "%v", u.Source)}
	}
	return Reading{Distance: d, Direction: Unknown}
}

func (u Ultrasonic) Name() string {
	return UltrasonicName
}

type Infrared struct {
	Source nullframe.Source
}

func (i Infrared) Read() Reading {
	frame, err := i.Source.ReadFrame()
	if err != nil {
		return Reading{Direction: Unknown, Err: err}
	}
	d, err := DecodeDirection(frame)
	if err != nil {
		return Reading{Direction: Unknown, Err: errors.Wrapf(err, "%v", i.Source)}
	}
	return Reading{Direction: d}
}

func (i Infrared) Name() string {
	return InfraredName
}

package avoidance

import (
	"fmt"

	"github.com/tigerbot-team/avoidbot/pkg/sensor"
)

type Situation uint8

const (
	// NoReading: the ultrasonic reading is missing, nothing is known about
	// the way ahead.
	NoReading Situation = iota
	// ClearAhead: far from any obstacle and the IR sensor sees both sides.
	ClearAhead
	// ObstacleRight: IR reports something on the right.
	ObstacleRight
	// ObstacleLeft: IR reports something on the left.
	ObstacleLeft
	// ClearNotAligned: far from any obstacle but IR doesn't see both sides.
	ClearNotAligned
	// Blocked: too close, and IR gives nothing to steer by.
	Blocked
)

func (s Situation) String() string {
	switch s {
	case NoReading:
		return "no_reading"
	case ClearAhead:
		return "clear_ahead"
	case ObstacleRight:
		return "obstacle_right"
	case ObstacleLeft:
		return "obstacle_left"
	case ClearNotAligned:
		return "clear_not_aligned"
	case Blocked:
		return "blocked"
	default:
		return fmt.Sprintf("situation(%d)", uint8(s))
	}
}

// Classify decides what the robot is facing.  Checks run in priority order:
// a clear path wins, then the IR sides, then distance alone.
func Classify(distance, direction sensor.Reading, threshold sensor.Distance) Situation {
	if !distance.Valid() {
		return NoReading
	}
	far := distance.Distance > threshold
	if far && direction.Valid() && direction.Direction == sensor.Both {
		return ClearAhead
	}
	if direction.Valid() {
		switch direction.Direction {
		case sensor.Right:
			return ObstacleRight
		case sensor.Left:
			return ObstacleLeft
		case sensor.Both, sensor.None, sensor.Unknown:
		default:
			panic(fmt.Errorf("unhandled direction %v", direction.Direction))
		}
	}
	if far {
		return ClearNotAligned
	}
	return Blocked
}

// pathClear is the exit condition for the side-obstacle corrections.
func pathClear(distance, direction sensor.Reading, threshold sensor.Distance) bool {
	return farEnough(distance, direction, threshold) && aligned(distance, direction, threshold)
}

func aligned(_, direction sensor.Reading, _ sensor.Distance) bool {
	return direction.Valid() && direction.Direction == sensor.Both
}

func farEnough(distance, _ sensor.Reading, threshold sensor.Distance) bool {
	return distance.Valid() && distance.Distance > threshold
}

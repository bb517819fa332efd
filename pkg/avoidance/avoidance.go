// Package avoidance is the obstacle avoidance mode: poll the ultrasonic and
// IR sensors, decide, drive.
//
// Every tick reads both sensors fresh and issues exactly one motion command.
// When the robot has to turn away from something it stays in a correction
// loop, spinning one command per poll, until the exit condition for that
// situation holds.  A missing reading never satisfies an exit condition.
package avoidance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
	"github.com/tigerbot-team/avoidbot/pkg/sensor"
	"github.com/tigerbot-team/avoidbot/pkg/telemetry"
)

// ErrSensorFailed is returned by Run when a sensor has failed too many times
// in a row to keep driving on.
var ErrSensorFailed = errors.New("sensor failed")

type Config struct {
	ThresholdCM  sensor.Distance `yaml:"threshold_cm" env:"AVOIDBOT_THRESHOLD_CM"`
	PollInterval time.Duration   `yaml:"poll_interval" env:"AVOIDBOT_POLL_INTERVAL"`

	CruiseSpeed motion.Speed `yaml:"cruise_speed" env:"AVOIDBOT_CRUISE_SPEED"`
	// SpeedFromDistance drives at a speed equal to the distance reading
	// (clamped) instead of CruiseSpeed.
	SpeedFromDistance bool `yaml:"speed_from_distance" env:"AVOIDBOT_SPEED_FROM_DISTANCE"`

	// Spins drive the inside wheels at SpinSlow and the outside at SpinFast.
	SpinSlow motion.Speed `yaml:"spin_slow" env:"AVOIDBOT_SPIN_SLOW"`
	SpinFast motion.Speed `yaml:"spin_fast" env:"AVOIDBOT_SPIN_FAST"`

	MaxConsecutiveFailures uint32 `yaml:"max_consecutive_failures" env:"AVOIDBOT_MAX_CONSECUTIVE_FAILURES"`

	Verbose bool `yaml:"verbose" env:"AVOIDBOT_VERBOSE"`
}

func DefaultConfig() Config {
	return Config{
		ThresholdCM:            60,
		PollInterval:           50 * time.Microsecond,
		CruiseSpeed:            100,
		SpinSlow:               50,
		SpinFast:               150,
		MaxConsecutiveFailures: 200,
	}
}

func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.Errorf("poll interval must be positive, not %v", c.PollInterval)
	}
	if c.ThresholdCM < 0 {
		return errors.Errorf("threshold must not be negative, not %d", c.ThresholdCM)
	}
	if c.MaxConsecutiveFailures == 0 {
		return errors.New("max consecutive failures must be at least 1")
	}
	return nil
}

// Sensor is one of the two inputs to the loop.
type Sensor interface {
	Read() sensor.Reading
	Name() string
}

type Loop struct {
	cfg     Config
	ranger  Sensor
	bearing Sensor
	motors  motion.Interface
	logger  *log.Logger
	metrics *telemetry.Metrics

	rangerHealth  *gobreaker.CircuitBreaker
	bearingHealth *gobreaker.CircuitBreaker

	ticker *time.Ticker
}

// New creates the loop.  A nil logger means the standard logger; with nil
// metrics the loop still counts, but nothing ever reads the counters.
func New(cfg Config, ranger, bearing Sensor, motors motion.Interface, logger *log.Logger, metrics *telemetry.Metrics) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	if metrics == nil {
		metrics = telemetry.New()
	}
	l := &Loop{
		cfg:     cfg,
		ranger:  ranger,
		bearing: bearing,
		motors:  motors,
		logger:  logger,
		metrics: metrics,
	}
	l.rangerHealth = l.newHealth(ranger.Name())
	l.bearingHealth = l.newHealth(bearing.Name())
	return l
}

func (l *Loop) Name() string {
	return "AVOIDANCE MODE"
}

// newHealth tracks consecutive device faults for one sensor.  Malformed
// payloads don't count: the device is there and talking.
func (l *Loop) newHealth(name string) *gobreaker.CircuitBreaker {
	limit := l.cfg.MaxConsecutiveFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: time.Hour,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= limit
		},
		IsSuccessful: func(err error) bool {
			return !sensor.KindOf(err).DeviceFault()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.logger.Printf("%s sensor health %v -> %v", name, from, to)
		},
	})
}

// Run drives until ctx is cancelled or a sensor fails for good.  The motors
// are stopped exactly once on the way out, whatever the reason.  Motors that
// implement motion.Halter are halted rather than stopped, so a stop already
// sent from elsewhere is not repeated.
func (l *Loop) Run(ctx context.Context) (runErr error) {
	if err := l.cfg.Validate(); err != nil {
		return err
	}
	l.ticker = time.NewTicker(l.cfg.PollInterval)
	defer l.ticker.Stop()
	defer func() {
		l.logger.Println("Stopping motors")
		if err := l.halt(); err != nil && runErr == nil {
			runErr = err
		}
	}()

	l.logger.Printf("%s started: threshold=%dcm poll=%v", l.Name(), l.cfg.ThresholdCM, l.cfg.PollInterval)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.tick(ctx); err != nil {
			return err
		}
		if !l.wait(ctx) {
			return nil
		}
	}
}

func (l *Loop) tick(ctx context.Context) error {
	l.metrics.Tick()
	distance, direction, err := l.poll()
	if err != nil {
		return err
	}

	situation := Classify(distance, direction, l.cfg.ThresholdCM)
	l.metrics.Situation(situation.String())
	if l.cfg.Verbose {
		l.logger.Printf("distance=%s direction=%s -> %v", describeDistance(distance), direction.Direction, situation)
	}

	spinLeft := motion.SpinLeftCmd(l.cfg.SpinSlow, l.cfg.SpinFast)
	spinRight := motion.SpinRightCmd(l.cfg.SpinFast, l.cfg.SpinSlow)

	switch situation {
	case NoReading:
		// Nothing is known about what's ahead; don't keep driving blind.
		l.issue(motion.StopCmd())
		return nil
	case ClearAhead:
		speed := l.cruiseSpeed(distance.Distance)
		l.issue(motion.RunCmd(speed, speed))
		return nil
	case ObstacleRight:
		return l.correct(ctx, spinLeft, pathClear)
	case ObstacleLeft:
		return l.correct(ctx, spinRight, pathClear)
	case ClearNotAligned:
		return l.correct(ctx, spinRight, aligned)
	case Blocked:
		return l.correct(ctx, spinRight, farEnough)
	default:
		panic(fmt.Errorf("unhandled situation %v", situation))
	}
}

type exitCondition func(distance, direction sensor.Reading, threshold sensor.Distance) bool

// correct repeats cmd, re-polling after each one, until done holds.
func (l *Loop) correct(ctx context.Context, cmd motion.Command, done exitCondition) error {
	for {
		l.issue(cmd)
		if !l.wait(ctx) {
			return nil
		}
		distance, direction, err := l.poll()
		if err != nil {
			return err
		}
		if l.cfg.Verbose {
			l.logger.Printf("correcting: distance=%s direction=%s", describeDistance(distance), direction.Direction)
		}
		if done(distance, direction, l.cfg.ThresholdCM) {
			return nil
		}
	}
}

func (l *Loop) poll() (distance, direction sensor.Reading, err error) {
	distance, err = l.read(l.ranger, l.rangerHealth)
	if err != nil {
		return
	}
	direction, err = l.read(l.bearing, l.bearingHealth)
	return
}

func (l *Loop) read(s Sensor, health *gobreaker.CircuitBreaker) (sensor.Reading, error) {
	var r sensor.Reading
	_, err := health.Execute(func() (interface{}, error) {
		r = s.Read()
		return nil, r.Err
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return r, errors.Wrapf(ErrSensorFailed, "%s", s.Name())
	}

	l.metrics.Reading(s.Name(), r)
	if r.Err != nil {
		l.logger.Printf("Failed to read %s sensor (%v): %v", s.Name(), sensor.KindOf(r.Err), r.Err)
	}
	if health.State() == gobreaker.StateOpen {
		return r, errors.Wrapf(ErrSensorFailed, "%s: %d consecutive failures, last: %v",
			s.Name(), l.cfg.MaxConsecutiveFailures, r.Err)
	}
	return r, nil
}

func (l *Loop) issue(cmd motion.Command) {
	err := cmd.Apply(l.motors)
	l.metrics.Command(cmd, err)
	if err != nil {
		l.logger.Printf("Failed to send %v to motors: %v", cmd, err)
	}
}

// halt sends the final stop.  A panic in the adapter's Stop is recorded and
// returned as an error.
func (l *Loop) halt() (err error) {
	cmd := motion.StopCmd()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("motors panicked on %v: %v", cmd, r)
			l.metrics.Command(cmd, err)
			l.logger.Println(err)
		}
	}()
	var stopErr error
	if h, ok := l.motors.(motion.Halter); ok {
		stopErr = h.Halt()
	} else {
		stopErr = cmd.Apply(l.motors)
	}
	l.metrics.Command(cmd, stopErr)
	if stopErr != nil {
		l.logger.Printf("Failed to send %v to motors: %v", cmd, stopErr)
	}
	return nil
}

func (l *Loop) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-l.ticker.C:
		return ctx.Err() == nil
	}
}

func (l *Loop) cruiseSpeed(d sensor.Distance) motion.Speed {
	if !l.cfg.SpeedFromDistance {
		return l.cfg.CruiseSpeed
	}
	if d > 255 {
		return 255
	}
	return motion.Speed(d)
}

func describeDistance(r sensor.Reading) string {
	if !r.Valid() {
		return "absent"
	}
	return fmt.Sprintf("%dcm", r.Distance)
}

// Package config loads the robot configuration: built-in defaults, then the
// YAML file, then AVOIDBOT_* environment variables.
package config

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/avoidbot/pkg/avoidance"
	"github.com/tigerbot-team/avoidbot/pkg/motion"
	"github.com/tigerbot-team/avoidbot/pkg/motordev"
	"github.com/tigerbot-team/avoidbot/pkg/nullframe"
	"github.com/tigerbot-team/avoidbot/pkg/sensor"
	"github.com/tigerbot-team/avoidbot/pkg/yahboom"
)

const (
	DefaultPath = "/etc/avoidbot.yaml"

	DefaultUltrasonicDevice = "/dev/sr04"
	DefaultInfraredDevice   = "/dev/ir_device"
)

// Motor back ends.
const (
	BackendYahboom  = "yahboom"
	BackendMotordev = "motordev"
	BackendDummy    = "dummy"
)

type Sensors struct {
	// A baud rate above zero means the device is a serial port rather than
	// a character device.
	UltrasonicDevice string `yaml:"ultrasonic_device" env:"AVOIDBOT_SR04_DEVICE"`
	UltrasonicBaud   int    `yaml:"ultrasonic_baud" env:"AVOIDBOT_SR04_BAUD"`
	InfraredDevice   string `yaml:"infrared_device" env:"AVOIDBOT_IR_DEVICE"`
	InfraredBaud     int    `yaml:"infrared_baud" env:"AVOIDBOT_IR_BAUD"`
}

type Motors struct {
	Backend string `yaml:"backend" env:"AVOIDBOT_MOTOR_BACKEND"`
	I2CBus  string `yaml:"i2c_bus" env:"AVOIDBOT_I2C_BUS"`
	Device  string `yaml:"device" env:"AVOIDBOT_MOTOR_DEVICE"`
}

type Config struct {
	Sensors Sensors `yaml:"sensors"`
	Motors  Motors  `yaml:"motors"`
	// MetricsFile is a node_exporter textfile written when the controller
	// exits.  Empty disables it.
	MetricsFile string           `yaml:"metrics_file" env:"AVOIDBOT_METRICS_FILE"`
	Avoidance   avoidance.Config `yaml:"avoidance"`
}

func Default() Config {
	return Config{
		Sensors: Sensors{
			UltrasonicDevice: DefaultUltrasonicDevice,
			InfraredDevice:   DefaultInfraredDevice,
		},
		Motors: Motors{
			Backend: BackendYahboom,
			I2CBus:  yahboom.DefaultBus,
			Device:  motordev.DefaultDevice,
		},
		Avoidance: avoidance.DefaultConfig(),
	}
}

// Load reads the file at path over the defaults.  A missing file is not an
// error; the defaults (and environment) are used as they are.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No config file at", path, "using defaults")
	} else if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	} else if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing environment")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	fmt.Printf("Using config: %#v\n", cfg)
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Sensors.UltrasonicDevice == "" || c.Sensors.InfraredDevice == "" {
		return errors.New("both sensor devices must be set")
	}
	if c.Sensors.UltrasonicBaud < 0 || c.Sensors.InfraredBaud < 0 {
		return errors.New("baud rates must not be negative")
	}
	switch c.Motors.Backend {
	case BackendYahboom, BackendDummy:
	case BackendMotordev:
		if c.Motors.Device == "" {
			return errors.New("motordev back end needs a device")
		}
	default:
		return errors.Errorf("unknown motor back end %q", c.Motors.Backend)
	}
	return errors.Wrap(c.Avoidance.Validate(), "avoidance")
}

// OpenSensors builds both sensors.  The returned func releases any serial
// ports; character devices are opened per read and need nothing.
func (c Config) OpenSensors() (sensor.Ultrasonic, sensor.Infrared, func()) {
	var serials []*nullframe.Serial
	source := func(device string, baud int) nullframe.Source {
		if baud > 0 {
			s := nullframe.NewSerial(device, baud)
			serials = append(serials, s)
			return s
		}
		return nullframe.File{Path: device}
	}
	ranger := sensor.Ultrasonic{Source: source(c.Sensors.UltrasonicDevice, c.Sensors.UltrasonicBaud)}
	bearing := sensor.Infrared{Source: source(c.Sensors.InfraredDevice, c.Sensors.InfraredBaud)}
	return ranger, bearing, func() {
		for _, s := range serials {
			if err := s.Close(); err != nil {
				fmt.Println("Failed to close", s, err)
			}
		}
	}
}

// OpenMotors opens the configured back end.  The dummy back end logs to
// logger.
func (c Config) OpenMotors(logger *log.Logger) (motion.Interface, func() error, error) {
	switch c.Motors.Backend {
	case BackendDummy:
		return motion.Dummy(logger), func() error { return nil }, nil
	case BackendMotordev:
		m, err := motordev.Open(c.Motors.Device)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	case BackendYahboom:
		car, err := yahboom.Open(c.Motors.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		return car, car.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown motor back end %q", c.Motors.Backend)
	}
}

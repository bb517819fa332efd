// Package telemetry counts what the avoidance loop does.  The robot has no
// network connection of its own, so the counters are written in the
// Prometheus text format to a file that node_exporter's textfile collector
// can pick up after the run.
package telemetry

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tigerbot-team/avoidbot/pkg/motion"
	"github.com/tigerbot-team/avoidbot/pkg/sensor"
)

const namespace = "avoidbot"

type Metrics struct {
	Registry *prometheus.Registry

	Ticks          prometheus.Counter
	Situations     *prometheus.CounterVec
	Commands       *prometheus.CounterVec
	CommandErrors  *prometheus.CounterVec
	SensorErrors   *prometheus.CounterVec
	LastDistanceCM prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Decision loop ticks.",
		}),
		Situations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "situations_total",
			Help:      "Situations the decision loop classified, by situation.",
		}, []string{"situation"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "motion_commands_total",
			Help:      "Motion commands issued, by kind.",
		}, []string{"command"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "motion_command_errors_total",
			Help:      "Motion commands the motor back end failed to carry out, by kind.",
		}, []string{"command"}),
		SensorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_errors_total",
			Help:      "Failed sensor reads, by sensor and failure kind.",
		}, []string{"sensor", "kind"}),
		LastDistanceCM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_distance_centimeters",
			Help:      "Most recent valid ultrasonic reading.",
		}),
	}
	m.Registry.MustRegister(
		m.Ticks,
		m.Situations,
		m.Commands,
		m.CommandErrors,
		m.SensorErrors,
		m.LastDistanceCM,
	)
	return m
}

func (m *Metrics) Tick() {
	m.Ticks.Inc()
}

func (m *Metrics) Situation(name string) {
	m.Situations.WithLabelValues(name).Inc()
}

func (m *Metrics) Command(c motion.Command, err error) {
	m.Commands.WithLabelValues(c.Kind.String()).Inc()
	if err != nil {
		m.CommandErrors.WithLabelValues(c.Kind.String()).Inc()
	}
}

func (m *Metrics) Reading(sensorName string, r sensor.Reading) {
	if r.Err != nil {
		m.SensorErrors.WithLabelValues(sensorName, sensor.KindOf(r.Err).String()).Inc()
		return
	}
	if sensorName == sensor.UltrasonicName {
		m.LastDistanceCM.Set(float64(r.Distance))
	}
}

// WriteTextfile atomically replaces path with the current counter values.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.Registry), "write metrics to %s", path)
}

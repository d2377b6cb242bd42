package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/ascent-simulator/model"
)

// FlightCollector exports the live state of the current flight and per-run
// totals. It satisfies the run driver's Observer interface, so it can be
// handed straight to sim.Run.
type FlightCollector struct {
	gatherer prometheus.Gatherer

	Altitude       prometheus.Gauge
	Velocity       prometheus.Gauge
	Acceleration   prometheus.Gauge
	Mach           prometheus.Gauge
	Drag           prometheus.Gauge
	AirDensity     prometheus.Gauge
	AirTemperature prometheus.Gauge

	Steps        prometheus.Counter
	Runs         *prometheus.CounterVec
	RunDurations prometheus.Histogram
}

// NewFlightCollector registers the flight metrics against reg, defaulting to
// the global Prometheus registry when nil. Registering twice against the same
// registry returns collectors bound to the existing metrics.
func NewFlightCollector(reg prometheus.Registerer) (*FlightCollector, error) {
	reg, gatherer := registryPair(reg)

	c := &FlightCollector{gatherer: gatherer}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Altitude, "ascent_altitude_meters", "Altitude above the launch pad of the most recent step."},
		{&c.Velocity, "ascent_velocity_mps", "Vertical velocity of the most recent step."},
		{&c.Acceleration, "ascent_acceleration_mps2", "Net vertical acceleration of the most recent step."},
		{&c.Mach, "ascent_mach", "Mach number of the most recent step."},
		{&c.Drag, "ascent_drag_newtons", "Aerodynamic drag force of the most recent step."},
		{&c.AirDensity, "ascent_air_density_kg_per_m3", "Air density at the vehicle's altitude."},
		{&c.AirTemperature, "ascent_air_temperature_celsius", "Air temperature at the vehicle's altitude."},
	}
	for _, g := range gauges {
		gauge, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	var err error
	c.Steps, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ascent_steps_total",
		Help: "Integration steps executed across all runs.",
	}), "ascent_steps_total")
	if err != nil {
		return nil, err
	}
	c.Runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ascent_runs_total",
		Help: "Completed runs, labeled by termination reason.",
	}, []string{"termination"}), "ascent_runs_total")
	if err != nil {
		return nil, err
	}
	c.RunDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ascent_run_duration_seconds",
		Help:    "Wall-clock duration of a run.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}), "ascent_run_duration_seconds")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Observe publishes one integration step.
func (c *FlightCollector) Observe(_ context.Context, s model.SimulationState) {
	if c == nil {
		return
	}
	c.Altitude.Set(s.Altitude)
	c.Velocity.Set(s.Velocity)
	c.Acceleration.Set(s.Acceleration)
	c.Mach.Set(s.Mach)
	c.Drag.Set(s.Drag)
	c.AirDensity.Set(s.AirDensity)
	c.AirTemperature.Set(s.AirTemperature)
	c.Steps.Inc()
}

// RecordRun counts a finished run and its wall-clock duration.
func (c *FlightCollector) RecordRun(termination string, d time.Duration) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(termination).Inc()
	c.RunDurations.Observe(d.Seconds())
}

// Gatherer returns the gatherer backing Handler.
func (c *FlightCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FlightCollector) Handler() http.Handler {
	return handlerFor(c.Gatherer())
}

func handlerFor(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registryPair(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return reg, gatherer
}

// register adds c to reg, or hands back the collector already registered
// under the same descriptor when its type matches.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			var zero C
			return zero, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return existing, nil
	}
	return c, nil
}

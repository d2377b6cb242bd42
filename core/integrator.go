package core

import (
	"math"

	"github.com/signalsfoundry/ascent-simulator/model"
)

// FlightIntegrator owns the state of one vertical ascent and advances it by
// explicit Euler steps of fixed duration. It is not safe for concurrent use;
// independent simulations use independent integrators.
type FlightIntegrator struct {
	constants model.PhysicalConstants
	state     model.SimulationState
}

// NewFlightIntegrator validates the constants and returns an integrator at
// rest on the launch pad. Invalid constants yield a *ConfigurationError.
func NewFlightIntegrator(c model.PhysicalConstants) (*FlightIntegrator, error) {
	if err := ValidateConstants(c); err != nil {
		return nil, err
	}
	return &FlightIntegrator{
		constants: c,
		state:     model.InitialState(),
	}, nil
}

// Constants returns the immutable configuration of the integrator.
func (fi *FlightIntegrator) Constants() model.PhysicalConstants {
	return fi.constants
}

// State returns the current state.
func (fi *FlightIntegrator) State() model.SimulationState {
	return fi.state
}

// Seed replaces the current state, e.g. to start a coast phase from a given
// upward velocity. Step and Time continue from the seeded values.
func (fi *FlightIntegrator) Seed(s model.SimulationState) {
	fi.state = s
}

// Advance integrates one time step under the given thrust (N) and returns the
// new state. Position is updated from the velocity of the previous step, then
// velocity from the acceleration computed in this step.
//
// Arithmetic is unguarded: NaN and Inf propagate into the returned state.
func (fi *FlightIntegrator) Advance(thrust float64) model.SimulationState {
	c := fi.constants
	s := fi.state

	s.Altitude += s.Velocity * c.TimeStep

	density, temperature := Atmosphere(c.LaunchAltitude + s.Altitude)
	s.AirDensity = density
	s.AirTemperature = temperature

	s.SpeedOfSound = SpeedOfSound(s.AirTemperature)
	s.Mach = MachNumber(s.Velocity, s.SpeedOfSound)
	s.DragCoefficient = DragCoefficient(s.Mach)
	s.Drag = DragForce(s.DragCoefficient, s.Velocity, density, c.CrossSectionArea)

	// DragOpposesAscent subtracts drag regardless of the direction of
	// travel. DragOpposesMotion flips it once the vehicle descends.
	drag := s.Drag
	if c.DragMode == model.DragOpposesMotion && s.Velocity < 0 {
		drag = -drag
	}

	s.Thrust = thrust
	net := thrust - c.Weight() - drag
	s.Acceleration = net / c.DryMass
	s.Velocity += s.Acceleration * c.TimeStep

	s.Step++
	s.Time = float64(s.Step) * c.TimeStep

	fi.state = s
	return s
}

// Apogee estimates the altitude a drag-free, thrust-free coast would reach
// from the current state: altitude + v²/2g, or the current altitude while
// descending.
func (fi *FlightIntegrator) Apogee() float64 {
	v := fi.state.Velocity
	if v <= 0 {
		return fi.state.Altitude
	}
	return fi.state.Altitude + v*v/(2*fi.constants.Gravity)
}

// BallisticSteps is the closed-form number of drag-free, thrust-free steps
// until an upward velocity v0 turns negative: floor(v0/(g·Δt)) + 1.
func BallisticSteps(v0 float64, c model.PhysicalConstants) int {
	if v0 < 0 {
		return 0
	}
	return int(math.Floor(v0/(c.Gravity*c.TimeStep))) + 1
}

package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/ascent-simulator/model"
)

var (
	// ErrInvalidConstants is wrapped by every ConfigurationError.
	ErrInvalidConstants = errors.New("invalid physical constants")
	// ErrNonFiniteState is wrapped by DomainError when a step produced NaN or Inf.
	ErrNonFiniteState = errors.New("non-finite simulation state")
)

// ConfigurationError reports a PhysicalConstants field rejected at
// construction time.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s = %v: %s", ErrInvalidConstants, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConstants }

// DomainError reports a state quantity that left the real numbers.
type DomainError struct {
	Step     int
	Quantity string
	Value    float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s = %v at step %d", ErrNonFiniteState, e.Quantity, e.Value, e.Step)
}

func (e *DomainError) Unwrap() error { return ErrNonFiniteState }

// ValidateConstants checks that every constant is finite and strictly
// positive, returning the first offending field as a *ConfigurationError.
func ValidateConstants(c model.PhysicalConstants) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"gravity", c.Gravity},
		{"area", c.CrossSectionArea},
		{"dry_mass", c.DryMass},
		{"time_step", c.TimeStep},
		{"launch_altitude", c.LaunchAltitude},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ConfigurationError{Field: f.name, Value: f.value, Reason: "must be finite"}
		}
		if f.value <= 0 {
			return &ConfigurationError{Field: f.name, Value: f.value, Reason: "must be strictly positive"}
		}
	}
	switch c.DragMode {
	case model.DragOpposesAscent, model.DragOpposesMotion:
	default:
		return &ConfigurationError{Field: "drag_mode", Value: float64(c.DragMode), Reason: "unknown drag mode"}
	}
	return nil
}

// CheckState returns a *DomainError for the first kinematic or atmospheric
// quantity of s that is NaN or infinite.
func CheckState(s model.SimulationState) error {
	for _, q := range []struct {
		name  string
		value float64
	}{
		{"altitude", s.Altitude},
		{"velocity", s.Velocity},
		{"acceleration", s.Acceleration},
		{"air_temperature", s.AirTemperature},
		{"speed_of_sound", s.SpeedOfSound},
	} {
		if math.IsNaN(q.value) || math.IsInf(q.value, 0) {
			return &DomainError{Step: s.Step, Quantity: q.name, Value: q.value}
		}
	}
	return nil
}

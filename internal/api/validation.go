package api

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/model"
)

// ErrInvalidVehicle wraps vehicle profile validation failures.
var ErrInvalidVehicle = errors.New("invalid vehicle")

// ValidateVehicle checks a profile before it enters the catalogue.
func ValidateVehicle(v *model.VehicleProfile) error {
	if v == nil {
		return fmt.Errorf("%w: profile is required", ErrInvalidVehicle)
	}
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidVehicle)
	}
	if strings.ContainsAny(v.ID, "/ \t\n") {
		return fmt.Errorf("%w: id %q must not contain slashes or whitespace", ErrInvalidVehicle, v.ID)
	}
	if err := core.ValidateConstants(v.Constants); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVehicle, err)
	}
	if !finite(v.Thrust) || v.Thrust < 0 {
		return fmt.Errorf("%w: thrust must be finite and non-negative, got %v", ErrInvalidVehicle, v.Thrust)
	}
	if _, err := sim.ProfileFor(v.Thrust, v.ThrustCurve); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidVehicle, err)
	}
	return nil
}

// validateRun checks the run parameters that do not belong to a vehicle.
func validateRun(p runParams, maxSteps int) error {
	if !finite(p.InitialVelocity) {
		return fmt.Errorf("%w: initial_velocity must be finite", ErrInvalidRequest)
	}
	if p.MaxSteps <= 0 || p.MaxSteps > maxSteps {
		return fmt.Errorf("%w: max_steps must be in (0, %d], got %d", ErrInvalidRequest, maxSteps, p.MaxSteps)
	}
	if !finite(p.MaxTime) || p.MaxTime < 0 {
		return fmt.Errorf("%w: max_time must be finite and non-negative", ErrInvalidRequest)
	}
	if p.TrajectoryStride < 0 {
		return fmt.Errorf("%w: trajectory_stride must not be negative", ErrInvalidRequest)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

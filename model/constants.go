package model

import "fmt"

// Reference vehicle values: a sounding-rocket-class airframe launched from a
// pad roughly 4000 ft above sea level.
const (
	DefaultGravity          = 9.81   // m/s²
	DefaultCrossSectionArea = 0.0366 // m²
	DefaultDryMass          = 70.0   // kg
	DefaultTimeStep         = 0.01   // s
	DefaultLaunchAltitude   = 1219.2 // m above sea level

	// DefaultAirTemperature seeds SimulationState before the first
	// atmosphere evaluation (°C, standard sea level).
	DefaultAirTemperature = 15.0
)

// DragMode selects how the drag magnitude is applied to the net force.
type DragMode int

const (
	// DragOpposesAscent always subtracts drag, as if the vehicle were moving
	// upward. This is the reference behaviour and the default; on descent it
	// accelerates the vehicle downward instead of braking it.
	DragOpposesAscent DragMode = iota
	// DragOpposesMotion signs drag against the velocity vector.
	DragOpposesMotion
)

// String implements fmt.Stringer.
func (m DragMode) String() string {
	switch m {
	case DragOpposesAscent:
		return "ascent"
	case DragOpposesMotion:
		return "motion"
	default:
		return "unknown"
	}
}

// ParseDragMode maps "ascent" / "motion" (and the empty string) onto a DragMode.
func ParseDragMode(s string) (DragMode, bool) {
	switch s {
	case "", "ascent":
		return DragOpposesAscent, true
	case "motion":
		return DragOpposesMotion, true
	default:
		return DragOpposesAscent, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m DragMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DragMode) UnmarshalText(text []byte) error {
	mode, ok := ParseDragMode(string(text))
	if !ok {
		return fmt.Errorf("unknown drag mode %q", string(text))
	}
	*m = mode
	return nil
}

// PhysicalConstants is the immutable configuration of one simulation. All
// values must be strictly positive.
type PhysicalConstants struct {
	Gravity          float64  `json:"gravity" msgpack:"gravity" mapstructure:"gravity"`                         // m/s²
	CrossSectionArea float64  `json:"area" msgpack:"area" mapstructure:"area"`                                  // m²
	DryMass          float64  `json:"dry_mass" msgpack:"dry_mass" mapstructure:"dry_mass"`                      // kg
	TimeStep         float64  `json:"time_step" msgpack:"time_step" mapstructure:"time_step"`                   // s
	LaunchAltitude   float64  `json:"launch_altitude" msgpack:"launch_altitude" mapstructure:"launch_altitude"` // m above sea level
	DragMode         DragMode `json:"drag_mode" msgpack:"drag_mode" mapstructure:"drag_mode"`
}

// DefaultPhysicalConstants returns the reference vehicle configuration.
func DefaultPhysicalConstants() PhysicalConstants {
	return PhysicalConstants{
		Gravity:          DefaultGravity,
		CrossSectionArea: DefaultCrossSectionArea,
		DryMass:          DefaultDryMass,
		TimeStep:         DefaultTimeStep,
		LaunchAltitude:   DefaultLaunchAltitude,
		DragMode:         DragOpposesAscent,
	}
}

// Weight returns the constant gravitational force on the dry vehicle (N).
func (c PhysicalConstants) Weight() float64 {
	return c.DryMass * c.Gravity
}

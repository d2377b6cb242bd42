package model

// ReferenceVehicleID names the built-in profile carrying the default constants.
const ReferenceVehicleID = "reference"

// ReferenceThrust is the constant placeholder thrust of the reference run (N).
const ReferenceThrust = 1000.0

// VehicleProfile is a named, reusable simulation setup: the physical
// constants plus a thrust program. ThrustCurve, when non-empty, takes
// precedence over the constant Thrust and uses the "t:N,t:N" syntax.
type VehicleProfile struct {
	ID          string            `json:"id" msgpack:"id" mapstructure:"id"`
	Name        string            `json:"name" msgpack:"name" mapstructure:"name"`
	Description string            `json:"description,omitempty" msgpack:"description,omitempty" mapstructure:"description"`
	Constants   PhysicalConstants `json:"constants" msgpack:"constants" mapstructure:"constants"`
	Thrust      float64           `json:"thrust" msgpack:"thrust" mapstructure:"thrust"`
	ThrustCurve string            `json:"thrust_curve,omitempty" msgpack:"thrust_curve,omitempty" mapstructure:"thrust_curve"`
}

// ReferenceVehicle returns the profile matching the reference program: default
// constants under a constant 1000 N thrust.
func ReferenceVehicle() *VehicleProfile {
	return &VehicleProfile{
		ID:          ReferenceVehicleID,
		Name:        "Reference sounding rocket",
		Description: "70 kg dry, 0.0366 m² frontal area, constant 1 kN thrust from a 1219.2 m pad",
		Constants:   DefaultPhysicalConstants(),
		Thrust:      ReferenceThrust,
	}
}

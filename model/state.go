package model

// SimulationState is a snapshot of the vehicle after a step. Altitude is
// relative to the launch pad; velocity is positive upward.
//
// AirTemperature is the only field that feeds the next step (speed of sound
// is derived from it). The remaining atmospheric and aerodynamic values are
// diagnostics of the step that produced the snapshot.
type SimulationState struct {
	Step int     `json:"step" msgpack:"step"`
	Time float64 `json:"time" msgpack:"time"` // simulated seconds since start

	Altitude       float64 `json:"altitude" msgpack:"altitude"`               // m
	Velocity       float64 `json:"velocity" msgpack:"velocity"`               // m/s
	Acceleration   float64 `json:"acceleration" msgpack:"acceleration"`       // m/s²
	AirTemperature float64 `json:"air_temperature" msgpack:"air_temperature"` // °C

	Thrust          float64 `json:"thrust" msgpack:"thrust"`                     // N
	AirDensity      float64 `json:"air_density" msgpack:"air_density"`           // kg/m³
	SpeedOfSound    float64 `json:"speed_of_sound" msgpack:"speed_of_sound"`     // m/s
	Mach            float64 `json:"mach" msgpack:"mach"`                         // dimensionless
	DragCoefficient float64 `json:"drag_coefficient" msgpack:"drag_coefficient"` // dimensionless
	Drag            float64 `json:"drag" msgpack:"drag"`                         // N, magnitude
}

// InitialState is the state before the first step: at rest on the pad.
func InitialState() SimulationState {
	return SimulationState{AirTemperature: DefaultAirTemperature}
}

// Ascending reports whether the state still satisfies the loop condition
// velocity >= 0.
func (s SimulationState) Ascending() bool {
	return s.Velocity >= 0
}

package core

import "math"

// TroposphereCeiling is the regime seam of the atmosphere model (metres above
// sea level). Altitudes strictly below it use the tropospheric lapse-rate
// formula; the ceiling itself and everything above use the isothermal one.
const TroposphereCeiling = 11000.0

// StratosphereTemperature is the constant air temperature (°C) above the
// tropopause.
const StratosphereTemperature = -56.46

// Tropospheric lapse-rate fit: temp = TroposphereLapseRate*alt + TroposphereBaseTemperature.
const (
	TroposphereLapseRate       = -0.0092485
	TroposphereBaseTemperature = 45.2234
)

// Speed-of-sound constants: ratio of specific heats, molar gas constant
// (J/(mol·K)) and molar mass of dry air (kg/mol).
const (
	HeatCapacityRatio = 1.4
	MolarGasConstant  = 8.3145
	MolarMassAir      = 0.028964
)

// Atmosphere returns air density (kg/m³) and air temperature (°C) at the given
// altitude above sea level (metres). It is total over the reals; negative
// altitudes extrapolate the tropospheric fit below sea level.
//
// Density is discontinuous at TroposphereCeiling. The fit is coarse and is
// reproduced as is.
func Atmosphere(altitude float64) (density, temperature float64) {
	var pressure float64 // kPa
	if altitude < TroposphereCeiling {
		temperature = TroposphereLapseRate*altitude + TroposphereBaseTemperature
		pressure = 101.29 * math.Pow((temperature+273.15)/288.08, 5.256)
	} else {
		temperature = StratosphereTemperature
		pressure = 22.65 * math.Exp(1.73-0.000157*altitude)
	}
	density = pressure / (0.2869 * (temperature + 273.1))
	return density, temperature
}

// SpeedOfSound returns the local speed of sound (m/s) for an air temperature in
// °C. Temperatures at or below absolute zero yield NaN or zero; callers that
// need a guarantee check the result with CheckState.
func SpeedOfSound(temperature float64) float64 {
	return math.Sqrt(HeatCapacityRatio * MolarGasConstant * (temperature + 273.15) / MolarMassAir)
}

// MachNumber returns |velocity / speedOfSound|.
func MachNumber(velocity, speedOfSound float64) float64 {
	return math.Abs(velocity / speedOfSound)
}

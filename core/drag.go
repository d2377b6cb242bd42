package core

// Mach thresholds separating the drag-coefficient regimes.
const (
	TransonicMach  = 0.8
	SupersonicMach = 1.2
	HypersonicMach = 5.0
)

// DragCoefficient returns the dimensionless drag coefficient for a Mach number
// using a four-regime linear fit:
//
//	M < 0.8          0.6 − 0.1·M
//	0.8 ≤ M ≤ 1.2    0.8 + 0.4·(M − 0.8)
//	1.2 < M < 5      1.2 − 0.08·(M − 1.2)
//	M ≥ 5            0.6 + 0.1·(M − 5)
//
// The fit jumps at 0.8 and at 1.2; those steps are part of the model.
// NaN falls through to the hypersonic branch and stays NaN.
func DragCoefficient(mach float64) float64 {
	switch {
	case mach < TransonicMach:
		return 0.6 - 0.1*mach
	case mach >= TransonicMach && mach <= SupersonicMach:
		return 0.8 + 0.4*(mach-TransonicMach)
	case mach > SupersonicMach && mach < HypersonicMach:
		return 1.2 - 0.08*(mach-SupersonicMach)
	default:
		return 0.6 + 0.1*(mach-HypersonicMach)
	}
}

// DragForce returns the drag magnitude (N) 0.5·Cd·A·ρ·v². The sign of
// velocity is irrelevant; applying the force is the integrator's job.
func DragForce(coefficient, velocity, density, area float64) float64 {
	return 0.5 * coefficient * area * density * velocity * velocity
}

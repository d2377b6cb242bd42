package core

import "testing"

func TestDragCoefficientRegimes(t *testing.T) {
	tests := []struct {
		name string
		mach float64
		want float64
	}{
		{"at rest", 0, 0.6},
		{"subsonic", 0.5, 0.55},
		{"transonic entry", 0.8, 0.8},
		{"transonic mid", 1.0, 0.88},
		{"transonic exit", 1.2, 0.96},
		{"supersonic", 3.2, 1.04},
		{"hypersonic entry", 5.0, 0.6},
		{"hypersonic", 7.0, 0.8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DragCoefficient(tc.mach); !approxEqual(got, tc.want, 1e-12) {
				t.Fatalf("DragCoefficient(%v) = %v, want %v", tc.mach, got, tc.want)
			}
		})
	}
}

func TestDragCoefficientBoundaryOwnership(t *testing.T) {
	// 0.8 and 1.2 both belong to the transonic band; just past 1.2 jumps to
	// the supersonic line near 1.2.
	justBelow := DragCoefficient(0.8 - 1e-9)
	if !approxEqual(justBelow, 0.52, 1e-6) {
		t.Fatalf("DragCoefficient(0.8-) = %v, want ~0.52", justBelow)
	}
	justAbove := DragCoefficient(1.2 + 1e-9)
	if !approxEqual(justAbove, 1.2, 1e-6) {
		t.Fatalf("DragCoefficient(1.2+) = %v, want ~1.2", justAbove)
	}
	if DragCoefficient(5.0-1e-9) <= DragCoefficient(5.0) {
		t.Fatalf("expected step down entering the hypersonic regime")
	}
}

func TestDragForceZeroVelocity(t *testing.T) {
	for _, density := range []float64{0, 0.3645, 1.225, 1e6} {
		if got := DragForce(1.0, 0, density, 0.0366); got != 0 {
			t.Fatalf("DragForce with zero velocity and density %v = %v, want 0", density, got)
		}
	}
}

func TestDragForceMagnitude(t *testing.T) {
	up := DragForce(0.6, 100, 1.2, 0.0366)
	down := DragForce(0.6, -100, 1.2, 0.0366)
	if up != down {
		t.Fatalf("drag magnitude depends on direction: %v vs %v", up, down)
	}
	if want := 0.5 * 0.6 * 0.0366 * 1.2 * 100 * 100; !approxEqual(up, want, 1e-9) {
		t.Fatalf("DragForce = %v, want %v", up, want)
	}
}

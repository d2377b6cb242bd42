package core

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAtmosphereTroposphereLapseRate(t *testing.T) {
	pairs := [][2]float64{
		{0, 1000},
		{1219.2, 5000},
		{-500, 10999},
		{3000, 3000.5},
	}
	for _, p := range pairs {
		_, t1 := Atmosphere(p[0])
		_, t2 := Atmosphere(p[1])
		slope := (t2 - t1) / (p[1] - p[0])
		if !approxEqual(slope, -0.0092485, 1e-9) {
			t.Fatalf("lapse rate between %v and %v = %v, want -0.0092485", p[0], p[1], slope)
		}
	}

	_, padTemp := Atmosphere(1219.2)
	if want := -0.0092485*1219.2 + 45.2234; !approxEqual(padTemp, want, 1e-12) {
		t.Fatalf("pad temperature = %v, want %v", padTemp, want)
	}
}

func TestAtmosphereRegimeSeam(t *testing.T) {
	_, atCeiling := Atmosphere(11000)
	if atCeiling != -56.46 {
		t.Fatalf("temperature at 11000 m = %v, want -56.46", atCeiling)
	}
	_, atCeilingFloat := Atmosphere(11000.0)
	if atCeilingFloat != atCeiling {
		t.Fatalf("temperature differs between 11000 and 11000.0: %v vs %v", atCeiling, atCeilingFloat)
	}

	// Density is discontinuous across the seam; both sides are model values.
	below, belowTemp := Atmosphere(math.Nextafter(TroposphereCeiling, 0))
	above, _ := Atmosphere(TroposphereCeiling)

	wantBelow := 101.29 * math.Pow((belowTemp+273.15)/288.08, 5.256) / (0.2869 * (belowTemp + 273.1))
	wantAbove := 22.65 * math.Exp(1.73-0.000157*11000) / (0.2869 * (-56.46 + 273.1))
	if !approxEqual(below, wantBelow, 1e-12) {
		t.Fatalf("density just below seam = %v, want %v", below, wantBelow)
	}
	if !approxEqual(above, wantAbove, 1e-12) {
		t.Fatalf("density at seam = %v, want %v", above, wantAbove)
	}
	if below == above {
		t.Fatalf("expected a density step at the tropopause, got %v on both sides", below)
	}
	if !approxEqual(below, 0.3645, 1e-3) || !approxEqual(above, 0.3655, 1e-3) {
		t.Fatalf("seam densities (%v, %v) outside expected neighbourhood", below, above)
	}
}

func TestAtmosphereDensityDecreasesWithAltitude(t *testing.T) {
	prev, _ := Atmosphere(-200)
	for alt := 0.0; alt <= 30000; alt += 250 {
		if alt == TroposphereCeiling {
			// skip the seam step
			prev, _ = Atmosphere(alt)
			continue
		}
		rho, _ := Atmosphere(alt)
		if rho >= prev {
			t.Fatalf("density at %v m = %v, not below previous %v", alt, rho, prev)
		}
		prev = rho
	}
}

func TestAtmosphereStratosphereIsothermal(t *testing.T) {
	for _, alt := range []float64{11000, 15000, 25000, 80000} {
		if _, temp := Atmosphere(alt); temp != StratosphereTemperature {
			t.Fatalf("temperature at %v m = %v, want %v", alt, temp, StratosphereTemperature)
		}
	}
}

func TestSpeedOfSound(t *testing.T) {
	if got := SpeedOfSound(15); !approxEqual(got, 340.3, 0.5) {
		t.Fatalf("SpeedOfSound(15) = %v, want ~340.3", got)
	}
	if got := SpeedOfSound(-56.46); !approxEqual(got, 295.0, 0.5) {
		t.Fatalf("SpeedOfSound(-56.46) = %v, want ~295", got)
	}
	if got := SpeedOfSound(-300); !math.IsNaN(got) {
		t.Fatalf("SpeedOfSound below absolute zero = %v, want NaN", got)
	}
}

func TestMachNumber(t *testing.T) {
	if got := MachNumber(-340, 340); got != 1 {
		t.Fatalf("MachNumber(-340, 340) = %v, want 1", got)
	}
	if got := MachNumber(170, 340); got != 0.5 {
		t.Fatalf("MachNumber(170, 340) = %v, want 0.5", got)
	}
}

package model

import (
	"encoding/json"
	"testing"
)

func TestDefaultPhysicalConstants(t *testing.T) {
	c := DefaultPhysicalConstants()
	if c.Gravity != 9.81 || c.CrossSectionArea != 0.0366 || c.DryMass != 70 || c.TimeStep != 0.01 || c.LaunchAltitude != 1219.2 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.DragMode != DragOpposesAscent {
		t.Fatalf("default drag mode = %v, want ascent", c.DragMode)
	}
	if got, want := c.Weight(), 70*9.81; got != want {
		t.Fatalf("Weight() = %v, want %v", got, want)
	}
}

func TestDragModeText(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want DragMode
		ok   bool
	}{
		{"", DragOpposesAscent, true},
		{"ascent", DragOpposesAscent, true},
		{"motion", DragOpposesMotion, true},
		{"sideways", DragOpposesAscent, false},
	} {
		got, ok := ParseDragMode(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseDragMode(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}

	data, err := json.Marshal(PhysicalConstants{DragMode: DragOpposesMotion})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back PhysicalConstants
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.DragMode != DragOpposesMotion {
		t.Fatalf("drag mode after JSON = %v, want motion", back.DragMode)
	}

	var bad DragMode
	if err := bad.UnmarshalText([]byte("sideways")); err == nil {
		t.Fatalf("expected error for unknown drag mode")
	}
}

func TestInitialState(t *testing.T) {
	s := InitialState()
	if s.Altitude != 0 || s.Velocity != 0 || s.Acceleration != 0 {
		t.Fatalf("initial kinematics should be zero, got %+v", s)
	}
	if s.AirTemperature != DefaultAirTemperature {
		t.Fatalf("initial air temperature = %v, want %v", s.AirTemperature, DefaultAirTemperature)
	}
	if !s.Ascending() {
		t.Fatalf("vehicle at rest should satisfy the ascending condition")
	}
}

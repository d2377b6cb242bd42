package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/kb"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level=error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSimulatorPrintsReportLines(t *testing.T) {
	out, err := execute(t, "--max-steps=3", "--no-summary")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if lines[0] != "Altitude: 0.00 m, Velocity: 0.04 m/s, Acceleration: 4.48 m/s²" {
		t.Fatalf("first line = %q", lines[0])
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "Altitude: ") || !strings.HasSuffix(l, " m/s²") {
			t.Fatalf("malformed report line %q", l)
		}
	}
}

type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func TestSimulatorBuffersReportLines(t *testing.T) {
	cmd := newRootCmd()
	var out countingWriter
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level=error", "--max-steps=2000"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Count(out.String(), "Altitude: ")
	if lines != 2000 {
		t.Fatalf("got %d report lines, want 2000", lines)
	}
	if out.writes >= lines/10 {
		t.Fatalf("%d writes for %d report lines, want buffered output", out.writes, lines)
	}
	if !strings.Contains(out.String(), "Termination: max_steps") {
		t.Fatalf("summary missing after the report lines")
	}
}

func TestSimulatorCoastToApogee(t *testing.T) {
	out, err := execute(t, "--quiet", "--thrust=0", "--initial-velocity=50", "--area=1e-12")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, "Altitude: ") {
		t.Fatalf("--quiet still printed report lines")
	}
	if !strings.Contains(out, "Termination: apogee") || !strings.Contains(out, "Apogee: 127") {
		t.Fatalf("summary = %q", out)
	}
}

func TestSimulatorNamedVehicle(t *testing.T) {
	out, err := execute(t, "--vehicle=reference", "--max-steps=10", "--quiet")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Termination: max_steps after 10 steps") {
		t.Fatalf("summary = %q", out)
	}

	if _, err := execute(t, "--vehicle=ghost"); !errors.Is(err, kb.ErrVehicleNotFound) {
		t.Fatalf("unknown vehicle error = %v", err)
	}
}

func TestSimulatorRejectsInvalidConstants(t *testing.T) {
	_, err := execute(t, "--dry-mass=0")
	if !errors.Is(err, core.ErrInvalidConstants) {
		t.Fatalf("error = %v, want ErrInvalidConstants", err)
	}
}

func TestSimulatorThrustCurveFlag(t *testing.T) {
	out, err := execute(t, "--quiet", "--thrust-curve=0:2000,3:2000,3.01:0")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Termination: apogee") {
		t.Fatalf("summary = %q", out)
	}
}

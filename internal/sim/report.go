package sim

import (
	"context"
	"fmt"
	"io"

	"github.com/signalsfoundry/ascent-simulator/model"
)

// ReportLine formats a state as the human-readable per-step line.
func ReportLine(s model.SimulationState) string {
	return fmt.Sprintf("Altitude: %.2f m, Velocity: %.2f m/s, Acceleration: %.2f m/s²",
		s.Altitude, s.Velocity, s.Acceleration)
}

// Reporter writes one ReportLine per observed state. Write errors are kept
// and stop further output; they never interrupt the simulation.
type Reporter struct {
	w   io.Writer
	err error
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Observe implements Observer.
func (r *Reporter) Observe(_ context.Context, s model.SimulationState) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintln(r.w, ReportLine(s))
}

// Err returns the first write error, if any.
func (r *Reporter) Err() error {
	return r.err
}

package sim

import (
	"context"

	"github.com/signalsfoundry/ascent-simulator/model"
)

// Observer receives every state the run loop produces, in order. Observers
// run synchronously on the simulation goroutine.
type Observer interface {
	Observe(ctx context.Context, s model.SimulationState)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, s model.SimulationState)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, s model.SimulationState) { f(ctx, s) }

// Recorder keeps every observed state. Stride > 1 keeps only every Stride-th
// step; the most recent state is always retained in Last.
type Recorder struct {
	Stride int

	states []model.SimulationState
	last   model.SimulationState
	seen   int
}

// Observe implements Observer.
func (r *Recorder) Observe(_ context.Context, s model.SimulationState) {
	r.seen++
	r.last = s
	if r.Stride <= 1 || r.seen%r.Stride == 1 {
		r.states = append(r.states, s)
	}
}

// States returns the recorded trajectory.
func (r *Recorder) States() []model.SimulationState {
	return r.states
}

// Last returns the most recently observed state.
func (r *Recorder) Last() model.SimulationState {
	return r.last
}

package timectrl

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// SimClock gives read access to simulated time without exposing the
// controller that advances it.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
	// Elapsed returns the simulated time since the start of the run.
	Elapsed() time.Duration
	// Steps returns the number of completed steps.
	Steps() int
}

// Mode describes how the StepController paces simulation steps.
type Mode int

const (
	// RealTime waits one Tick of wall-clock time before each step.
	RealTime Mode = iota
	// Accelerated steps as quickly as the loop can run.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "realtime" or "accelerated" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "realtime", "real-time", "real_time":
		return RealTime, nil
	case "accelerated", "":
		return Accelerated, nil
	default:
		return Accelerated, fmt.Errorf("unknown time mode %q", s)
	}
}

// StepFunc performs step number n (1-based) ending at simTime. Returning
// false stops the controller.
type StepFunc func(n int, simTime time.Time) bool

// StepController advances simulation time in fixed ticks on the caller's
// goroutine and notifies registered listeners after each step.
type StepController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	// steps is the number of completed steps.
	steps int

	listeners []func(n int, simTime time.Time)
}

// NewStepController constructs a controller.
func NewStepController(start time.Time, tick time.Duration, mode Mode) *StepController {
	return &StepController{
		StartTime: start,
		Tick:      tick,
		Mode:      mode,
	}
}

// TickFromSeconds converts a time step in seconds to a Duration, rounded to
// the nearest nanosecond. It returns 0 when dt does not map to a positive
// Duration: NaN, non-positive, below half a nanosecond or beyond
// math.MaxInt64 nanoseconds.
func TickFromSeconds(dt float64) time.Duration {
	ns := dt*float64(time.Second) + 0.5
	if !(ns >= 1) || ns >= math.MaxInt64 {
		return 0
	}
	return time.Duration(ns)
}

// Now returns the current simulation time. Implements SimClock.
func (sc *StepController) Now() time.Time {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.StartTime.Add(time.Duration(sc.steps) * sc.Tick)
}

// Elapsed returns the simulated time since StartTime. Implements SimClock.
func (sc *StepController) Elapsed() time.Duration {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return time.Duration(sc.steps) * sc.Tick
}

// Steps returns the number of completed steps. Implements SimClock.
func (sc *StepController) Steps() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.steps
}

// AddListener registers a callback invoked after every step.
func (sc *StepController) AddListener(fn func(n int, simTime time.Time)) {
	sc.listeners = append(sc.listeners, fn)
}

// Run calls fn once per tick until fn returns false, maxSteps steps have
// run, or ctx is done. maxSteps <= 0 means unbounded, so callers that cannot
// prove termination must pass a bound. It returns the number of steps
// performed and ctx.Err() if the context ended the run.
func (sc *StepController) Run(ctx context.Context, maxSteps int, fn StepFunc) (int, error) {
	sc.mu.Lock()
	sc.steps = 0
	sc.mu.Unlock()

	var ticker *time.Ticker
	if sc.Mode == RealTime && sc.Tick > 0 {
		ticker = time.NewTicker(sc.Tick)
		defer ticker.Stop()
	}

	n := 0
	for maxSteps <= 0 || n < maxSteps {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return n, err
		}

		n++
		simTime := sc.StartTime.Add(time.Duration(n) * sc.Tick)
		more := fn(n, simTime)

		sc.mu.Lock()
		sc.steps = n
		sc.mu.Unlock()

		for _, l := range sc.listeners {
			l(n, simTime)
		}
		if !more {
			break
		}
	}
	return n, nil
}

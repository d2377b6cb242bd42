package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/internal/logging"
	"github.com/signalsfoundry/ascent-simulator/model"
	"github.com/signalsfoundry/ascent-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/ascent-simulator/internal/sim"

// DefaultMaxSteps bounds a run when the caller does not: 10⁴ simulated
// seconds at the reference time step.
const DefaultMaxSteps = 1_000_000

// DefaultProgressInterval is the number of steps between progress logs.
const DefaultProgressInterval = 100_000

// Termination names why a run stopped.
type Termination string

const (
	// TerminationApogee: velocity dropped below zero.
	TerminationApogee Termination = "apogee"
	// TerminationGroundImpact: altitude dropped below the pad.
	TerminationGroundImpact Termination = "ground_impact"
	// TerminationMaxSteps: the step guard tripped.
	TerminationMaxSteps Termination = "max_steps"
	// TerminationMaxTime: the simulated-time guard tripped.
	TerminationMaxTime Termination = "max_time"
	// TerminationCanceled: the context ended the run.
	TerminationCanceled Termination = "canceled"
	// TerminationNonFinite: a step produced NaN or Inf.
	TerminationNonFinite Termination = "non_finite"
)

// Options bound and pace a run.
type Options struct {
	// MaxSteps is mandatory; a non-terminating thrust program would
	// otherwise loop forever.
	MaxSteps int
	// MaxTime stops the run once simulated time reaches it (seconds). Zero
	// disables the check.
	MaxTime float64
	// Mode selects real-time pacing or as-fast-as-possible stepping.
	Mode timectrl.Mode
	// StartTime anchors simulated time for listeners and logs.
	StartTime time.Time
	// ProgressInterval is the number of steps between debug progress logs.
	// Zero selects DefaultProgressInterval; negative disables them.
	ProgressInterval int

	Logger logging.Logger
}

// DefaultOptions returns accelerated stepping with the default step guard.
func DefaultOptions() Options {
	return Options{
		MaxSteps: DefaultMaxSteps,
		Mode:     timectrl.Accelerated,
	}
}

// Result is the outcome of a run.
type Result struct {
	Termination Termination           `json:"termination" msgpack:"termination"`
	Steps       int                   `json:"steps" msgpack:"steps"`
	Final       model.SimulationState `json:"final" msgpack:"final"`
	Summary     Summary               `json:"summary" msgpack:"summary"`
}

// Run drives fi until the vehicle stops ascending, emitting each new state to
// the observers. The loop runs while velocity >= 0 and additionally breaks as
// soon as a step leaves the vehicle below the pad. Guards: opts.MaxSteps,
// opts.MaxTime and ctx.
//
// Tripping a guard is reported through Result.Termination, not as an error.
// Errors are returned for invalid options, for a non-finite state (a
// *core.DomainError) and for context cancellation.
func Run(ctx context.Context, fi *core.FlightIntegrator, profile ThrustProfile, opts Options, observers ...Observer) (Result, error) {
	if fi == nil {
		return Result{}, errors.New("sim: nil integrator")
	}
	if profile == nil {
		return Result{}, errors.New("sim: nil thrust profile")
	}
	if opts.MaxSteps <= 0 {
		return Result{}, &core.ConfigurationError{Field: "max_steps", Value: float64(opts.MaxSteps), Reason: "a positive step bound is required"}
	}
	if opts.MaxTime < 0 {
		return Result{}, &core.ConfigurationError{Field: "max_time", Value: opts.MaxTime, Reason: "must not be negative"}
	}

	c := fi.Constants()
	tick := timectrl.TickFromSeconds(c.TimeStep)
	if opts.Mode == timectrl.RealTime && tick <= 0 {
		return Result{}, &core.ConfigurationError{Field: "time_step", Value: c.TimeStep, Reason: "cannot be paced against the wall clock"}
	}

	log := opts.Logger
	if log == nil {
		log = logging.LoggerFromContext(ctx)
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, log = logging.WithRunLogger(ctx, log)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "sim.Run")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("ascent.time_step", c.TimeStep),
		attribute.Float64("ascent.dry_mass", c.DryMass),
		attribute.Float64("ascent.launch_altitude", c.LaunchAltitude),
		attribute.String("ascent.drag_mode", c.DragMode.String()),
		attribute.Int("ascent.max_steps", opts.MaxSteps),
		attribute.String("run_id", logging.RunIDFromContext(ctx)),
	)

	summary := &summaryBuilder{}
	emit := append([]Observer{summary}, observers...)

	result := Result{Final: fi.State()}
	var stepErr error

	startFields := []logging.Field{
		logging.Float("time_step", c.TimeStep),
		logging.Int("max_steps", opts.MaxSteps),
		logging.Float("max_time", opts.MaxTime),
		logging.String("mode", opts.Mode.String()),
	}
	if curve, ok := profile.(*ThrustCurve); ok {
		startFields = append(startFields, logging.Float("burn_time", curve.BurnTime()))
	}
	log.Info(ctx, "simulation started", startFields...)

	if !fi.State().Ascending() {
		result.Termination = TerminationApogee
	} else {
		clock := timectrl.NewStepController(opts.StartTime, tick, opts.Mode)
		if every := progressInterval(opts); every > 0 {
			clock.AddListener(logProgress(ctx, log, clock, every))
		}
		steps, err := clock.Run(ctx, opts.MaxSteps, func(int, time.Time) bool {
			before := fi.State()
			s := fi.Advance(profile.Thrust(before.Time))
			result.Final = s

			if err := core.CheckState(s); err != nil {
				stepErr = err
				result.Termination = TerminationNonFinite
				return false
			}
			for _, o := range emit {
				o.Observe(ctx, s)
			}

			switch {
			case s.Altitude < 0:
				result.Termination = TerminationGroundImpact
				return false
			case !s.Ascending():
				result.Termination = TerminationApogee
				return false
			case opts.MaxTime > 0 && s.Time >= opts.MaxTime:
				result.Termination = TerminationMaxTime
				return false
			}
			return true
		})
		result.Steps = steps

		switch {
		case err != nil:
			result.Termination = TerminationCanceled
			stepErr = fmt.Errorf("sim: run canceled after %d steps: %w", steps, err)
		case result.Termination == "":
			result.Termination = TerminationMaxSteps
			log.Warn(ctx, "step guard reached before apogee",
				logging.Int("max_steps", opts.MaxSteps),
				logging.Float("velocity", result.Final.Velocity),
			)
		}
	}

	result.Summary = summary.build(result.Termination)
	result.Summary.ProjectedApogee = fi.Apogee()
	span.SetAttributes(
		attribute.String("ascent.termination", string(result.Termination)),
		attribute.Int("ascent.steps", result.Steps),
		attribute.Float64("ascent.apogee", result.Summary.Apogee),
	)

	if stepErr != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, stepErr.Error())
		log.Error(ctx, "simulation aborted",
			logging.String("termination", string(result.Termination)),
			logging.Int("steps", result.Steps),
			logging.Err(stepErr),
		)
		return result, stepErr
	}

	log.Info(ctx, "simulation finished",
		logging.String("termination", string(result.Termination)),
		logging.Int("steps", result.Steps),
		logging.Float("apogee_m", result.Summary.Apogee),
		logging.Float("max_velocity_mps", result.Summary.MaxVelocity),
	)
	return result, nil
}

func progressInterval(opts Options) int {
	switch {
	case opts.ProgressInterval < 0:
		return 0
	case opts.ProgressInterval == 0:
		return DefaultProgressInterval
	default:
		return opts.ProgressInterval
	}
}

// logProgress returns a step listener that logs every n-th step.
func logProgress(ctx context.Context, log logging.Logger, clock timectrl.SimClock, n int) func(int, time.Time) {
	return func(step int, _ time.Time) {
		if step%n != 0 {
			return
		}
		log.Debug(ctx, "simulation progress",
			logging.Int("steps", clock.Steps()),
			logging.Duration("sim_elapsed", clock.Elapsed()),
		)
	}
}

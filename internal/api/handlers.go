package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brunoga/deep"
	"github.com/gorilla/mux"
	"github.com/mitchellh/hashstructure/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/internal/logging"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/model"
)

// SimulationRequest is the body of POST /v1/simulations. Every field is
// optional: the run starts from the named vehicle (the reference vehicle by
// default) and the remaining fields override it.
type SimulationRequest struct {
	Vehicle string `json:"vehicle,omitempty"`
	// Constants is merged field by field over the vehicle's constants.
	Constants json.RawMessage `json:"constants,omitempty"`
	// Thrust replaces the vehicle's thrust program with a constant thrust
	// unless ThrustCurve is also given.
	Thrust      *float64 `json:"thrust,omitempty"`
	ThrustCurve *string  `json:"thrust_curve,omitempty"`

	InitialVelocity float64 `json:"initial_velocity,omitempty"`
	MaxSteps        int     `json:"max_steps,omitempty"`
	MaxTime         float64 `json:"max_time,omitempty"`

	IncludeTrajectory bool `json:"include_trajectory,omitempty"`
	TrajectoryStride  int  `json:"trajectory_stride,omitempty"`
}

// SimulationResponse is the result of a run.
type SimulationResponse struct {
	Vehicle string      `json:"vehicle" msgpack:"vehicle"`
	Cached  bool        `json:"cached" msgpack:"cached"`
	Summary sim.Summary `json:"summary" msgpack:"summary"`
	// TrajectoryStride is the stride actually applied, which may be coarser
	// than requested.
	TrajectoryStride int                     `json:"trajectory_stride,omitempty" msgpack:"trajectory_stride,omitempty"`
	Trajectory       []model.SimulationState `json:"trajectory,omitempty" msgpack:"trajectory,omitempty"`
}

// runParams is a fully resolved request. Runs are deterministic, so its hash
// identifies the result.
type runParams struct {
	Constants         model.PhysicalConstants
	Thrust            float64
	ThrustCurve       string
	InitialVelocity   float64
	MaxSteps          int
	MaxTime           float64
	IncludeTrajectory bool
	TrajectoryStride  int
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, http.StatusOK, map[string]any{"vehicles": s.kb.ListVehicles()})
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.kb.GetVehicle(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.write(w, r, http.StatusOK, v)
}

func (s *Server) handlePutVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var v model.VehicleProfile
	if err := decodeJSON(r, &v); err != nil {
		s.writeError(w, r, err)
		return
	}
	if v.ID != "" && v.ID != id {
		s.writeError(w, r, fmt.Errorf("%w: body id %q does not match path id %q", ErrInvalidRequest, v.ID, id))
		return
	}
	v.ID = id
	if err := ValidateVehicle(&v); err != nil {
		s.writeError(w, r, err)
		return
	}
	replaced, err := s.kb.PutVehicle(&v)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	s.write(w, r, status, &v)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := s.kb.RemoveVehicle(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.Simulate")
	defer span.End()
	r = r.WithContext(ctx)

	var req SimulationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	vehicle, params, err := s.resolve(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("ascent.vehicle", vehicle.ID))

	key, err := hashstructure.Hash(params, hashstructure.FormatV2, nil)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("hash request: %w", err))
		return
	}

	if s.cache != nil {
		cached, ok := s.cache.Get(key)
		s.api.CacheLookup(ok)
		if ok {
			span.SetAttributes(attribute.Bool("ascent.cached", true))
			resp := deep.MustCopy(cached)
			resp.Vehicle = vehicle.ID
			resp.Cached = true
			s.write(w, r, http.StatusOK, resp)
			return
		}
	}

	resp, err := s.simulate(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeError(w, r, err)
		return
	}
	if s.cache != nil {
		if len(resp.Trajectory) <= s.cacheMaxPoints {
			s.cache.Add(key, deep.MustCopy(resp))
			s.api.SetCacheEntries(s.cache.Len())
		} else {
			s.log.Debug(ctx, "response too large to cache",
				logging.Int("trajectory_points", len(resp.Trajectory)),
				logging.Int("limit", s.cacheMaxPoints),
			)
		}
	}
	resp.Vehicle = vehicle.ID
	s.write(w, r, http.StatusOK, resp)
}

// resolve merges req over its vehicle and validates the result.
func (s *Server) resolve(req SimulationRequest) (*model.VehicleProfile, runParams, error) {
	id := req.Vehicle
	if id == "" {
		id = model.ReferenceVehicleID
	}
	v, err := s.kb.GetVehicle(id)
	if err != nil {
		return nil, runParams{}, err
	}
	if len(req.Constants) > 0 {
		if err := json.Unmarshal(req.Constants, &v.Constants); err != nil {
			return nil, runParams{}, fmt.Errorf("%w: constants: %v", ErrInvalidRequest, err)
		}
	}
	if req.Thrust != nil {
		v.Thrust = *req.Thrust
		v.ThrustCurve = ""
	}
	if req.ThrustCurve != nil {
		v.ThrustCurve = *req.ThrustCurve
	}
	if err := ValidateVehicle(v); err != nil {
		return nil, runParams{}, err
	}

	p := runParams{
		Constants:         v.Constants,
		Thrust:            v.Thrust,
		ThrustCurve:       v.ThrustCurve,
		InitialVelocity:   req.InitialVelocity,
		MaxSteps:          req.MaxSteps,
		MaxTime:           req.MaxTime,
		IncludeTrajectory: req.IncludeTrajectory,
		TrajectoryStride:  req.TrajectoryStride,
	}
	if p.MaxSteps == 0 {
		p.MaxSteps = s.maxSteps
	}
	if !p.IncludeTrajectory {
		p.TrajectoryStride = 0
	}
	if err := validateRun(p, s.maxSteps); err != nil {
		return nil, runParams{}, err
	}
	if p.IncludeTrajectory {
		p.TrajectoryStride = s.trajectoryStride(p.MaxSteps, p.TrajectoryStride)
	}
	return v, p, nil
}

// trajectoryStride coarsens stride until a run of maxSteps records at most
// s.maxPoints states, counting the final state appended after the run.
func (s *Server) trajectoryStride(maxSteps, stride int) int {
	if stride < 1 {
		stride = 1
	}
	budget := s.maxPoints - 1
	if floor := (maxSteps + budget - 1) / budget; stride < floor {
		stride = floor
	}
	return stride
}

func (s *Server) simulate(ctx context.Context, p runParams) (*SimulationResponse, error) {
	fi, err := core.NewFlightIntegrator(p.Constants)
	if err != nil {
		return nil, err
	}
	if p.InitialVelocity != 0 {
		st := model.InitialState()
		st.Velocity = p.InitialVelocity
		fi.Seed(st)
	}
	profile, err := sim.ProfileFor(p.Thrust, p.ThrustCurve)
	if err != nil {
		return nil, err
	}

	opts := sim.DefaultOptions()
	opts.MaxSteps = p.MaxSteps
	opts.MaxTime = p.MaxTime
	opts.Logger = s.log

	var observers []sim.Observer
	if s.flight != nil {
		observers = append(observers, s.flight)
	}
	var rec *sim.Recorder
	if p.IncludeTrajectory {
		rec = &sim.Recorder{Stride: p.TrajectoryStride}
		observers = append(observers, rec)
	}

	start := time.Now()
	res, err := sim.Run(ctx, fi, profile, opts, observers...)
	s.flight.RecordRun(string(res.Termination), time.Since(start))
	if err != nil {
		if errors.Is(err, core.ErrNonFiniteState) {
			s.log.Warn(ctx, "run left the real numbers", logging.Err(err))
		}
		return nil, err
	}

	resp := &SimulationResponse{Summary: res.Summary}
	if rec != nil {
		resp.TrajectoryStride = p.TrajectoryStride
		resp.Trajectory = rec.States()
		if n := len(resp.Trajectory); n > 0 && resp.Trajectory[n-1].Step != rec.Last().Step {
			resp.Trajectory = append(resp.Trajectory, rec.Last())
		}
	}
	return resp, nil
}

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/kb"
)

var (
	// ErrNotFound is used when a route resolves but the entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest marks client-side validation failures.
	ErrInvalidRequest = errors.New("invalid request")
)

// ToHTTPStatus maps simulator errors onto HTTP status codes.
func ToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound),
		errors.Is(err, kb.ErrVehicleNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidVehicle),
		errors.Is(err, kb.ErrInvalidVehicle),
		errors.Is(err, core.ErrInvalidConstants),
		errors.Is(err, sim.ErrInvalidThrustCurve):
		return http.StatusBadRequest

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON (or msgpack) body of every error response.
type errorBody struct {
	Error  string `json:"error" msgpack:"error"`
	Status int    `json:"status" msgpack:"status"`
}

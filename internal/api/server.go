// Package api serves the vehicle catalogue and simulation runs over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/signalsfoundry/ascent-simulator/internal/logging"
	"github.com/signalsfoundry/ascent-simulator/internal/observability"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/kb"
)

const tracerName = "github.com/signalsfoundry/ascent-simulator/internal/api"

const (
	// DefaultMaxTrajectoryPoints caps the states a simulation response
	// carries.
	DefaultMaxTrajectoryPoints = 10_000
	// DefaultCacheMaxPoints is the longest trajectory kept in the result
	// cache.
	DefaultCacheMaxPoints = 1_000
)

// Options configure a Server. Only KB is required.
type Options struct {
	KB     *kb.KnowledgeBase
	Logger logging.Logger

	// CacheSize bounds the result cache; zero disables caching.
	CacheSize int
	// MaxSteps caps the step guard a request may ask for. Requests that
	// leave max_steps unset get this value.
	MaxSteps int
	// MaxTrajectoryPoints caps the states a response may carry, the final
	// state included. Requests whose stride would exceed it get a coarser
	// stride. Zero selects DefaultMaxTrajectoryPoints.
	MaxTrajectoryPoints int
	// CacheMaxPoints is the longest trajectory a cached response may hold;
	// larger responses are served but not cached. Zero selects
	// DefaultCacheMaxPoints.
	CacheMaxPoints int

	APIMetrics    *observability.APICollector
	FlightMetrics *observability.FlightCollector
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Server implements the HTTP API.
type Server struct {
	kb       *kb.KnowledgeBase
	log      logging.Logger
	cache    *lru.Cache[uint64, *SimulationResponse]
	maxSteps int

	maxPoints      int
	cacheMaxPoints int

	api     *observability.APICollector
	flight  *observability.FlightCollector
	metrics http.Handler

	unsubscribe func()
}

// NewServer builds a Server from opts.
func NewServer(opts Options) (*Server, error) {
	if opts.KB == nil {
		return nil, errors.New("api: knowledge base is required")
	}
	if opts.CacheSize < 0 {
		return nil, fmt.Errorf("api: cache size must not be negative, got %d", opts.CacheSize)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = sim.DefaultMaxSteps
	}
	maxPoints := opts.MaxTrajectoryPoints
	switch {
	case maxPoints == 0:
		maxPoints = DefaultMaxTrajectoryPoints
	case maxPoints < 2:
		return nil, fmt.Errorf("api: trajectory point cap must be at least 2, got %d", maxPoints)
	}
	cacheMaxPoints := opts.CacheMaxPoints
	switch {
	case cacheMaxPoints == 0:
		cacheMaxPoints = DefaultCacheMaxPoints
	case cacheMaxPoints < 0:
		return nil, fmt.Errorf("api: cache point limit must not be negative, got %d", cacheMaxPoints)
	}

	s := &Server{
		kb:       opts.KB,
		log:      log.With(logging.String("component", "api")),
		maxSteps: maxSteps,

		maxPoints:      maxPoints,
		cacheMaxPoints: cacheMaxPoints,

		api:     opts.APIMetrics,
		flight:  opts.FlightMetrics,
		metrics: opts.MetricsHandler,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[uint64, *SimulationResponse](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("api: result cache: %w", err)
		}
		s.cache = cache
	}
	s.unsubscribe = s.kb.Subscribe(func(e kb.Event) {
		s.log.Info(context.Background(), "vehicle catalogue changed",
			logging.String("event", e.Type.String()),
			logging.String("vehicle", e.Vehicle.ID),
		)
	})
	return s, nil
}

// Close detaches the server from the catalogue.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Handler returns the routed API wrapped in recovery, access logging, CORS
// and compression middleware.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(false)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, fmt.Errorf("%w: %s", ErrNotFound, r.URL.Path))
	})

	s.route(router, "", "/ping", s.handlePing, http.MethodGet)
	if s.metrics != nil {
		router.Path("/metrics").Handler(s.metrics).Methods(http.MethodGet)
	}

	v1 := router.PathPrefix("/v1").Subrouter()
	s.route(v1, "/v1", "/vehicles", s.handleListVehicles, http.MethodGet)
	s.route(v1, "/v1", "/vehicles/{id}", s.handleGetVehicle, http.MethodGet)
	s.route(v1, "/v1", "/vehicles/{id}", s.handlePutVehicle, http.MethodPut)
	s.route(v1, "/v1", "/vehicles/{id}", s.handleDeleteVehicle, http.MethodDelete)
	s.route(v1, "/v1", "/simulations", s.handleSimulate, http.MethodPost)

	var h http.Handler = router
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.log}),
		handlers.PrintRecoveryStack(true),
	)(h)
	return h
}

// route registers fn for method on path; prefix is the subrouter's path
// prefix and only labels metrics.
func (s *Server) route(r *mux.Router, prefix, path string, fn http.HandlerFunc, method string) {
	var h http.Handler = fn
	if s.api != nil {
		h = s.api.Instrument(prefix+path, h)
	}
	r.Path(path).Handler(h).Methods(method)
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.log.Debug(p.Request.Context(), "http request",
		logging.String("method", p.Request.Method),
		logging.String("path", p.URL.Path),
		logging.Int("status", p.StatusCode),
		logging.Int("bytes", p.Size),
		logging.Duration("elapsed", time.Since(p.TimeStamp)),
	)
}

type recoveryLogger struct{ log logging.Logger }

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(context.Background(), "panic serving request",
		logging.String("panic", strings.TrimSpace(fmt.Sprintln(v...))))
}

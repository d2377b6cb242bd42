package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/ascent-simulator/model"
)

func TestFlightCollectorObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewFlightCollector(reg)
	if err != nil {
		t.Fatalf("NewFlightCollector: %v", err)
	}

	c.Observe(context.Background(), model.SimulationState{
		Altitude:       120.5,
		Velocity:       33,
		Acceleration:   4.5,
		Mach:           0.1,
		Drag:           12,
		AirDensity:     1.1,
		AirTemperature: 7.5,
	})
	c.Observe(context.Background(), model.SimulationState{Altitude: 121})

	if got := testutil.ToFloat64(c.Altitude); got != 121 {
		t.Fatalf("ascent_altitude_meters = %v, want 121 (latest step)", got)
	}
	if got := testutil.ToFloat64(c.Steps); got != 2 {
		t.Fatalf("ascent_steps_total = %v, want 2", got)
	}
}

func TestFlightCollectorRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewFlightCollector(reg)
	if err != nil {
		t.Fatalf("NewFlightCollector: %v", err)
	}
	c.RecordRun("apogee", 20*time.Millisecond)
	c.RecordRun("apogee", 30*time.Millisecond)
	c.RecordRun("max_steps", time.Second)

	if got := testutil.ToFloat64(c.Runs.WithLabelValues("apogee")); got != 2 {
		t.Fatalf("ascent_runs_total{termination=apogee} = %v, want 2", got)
	}
	if n := histogramSampleCount(t, reg, "ascent_run_duration_seconds", nil); n != 3 {
		t.Fatalf("ascent_run_duration_seconds sample_count = %d, want 3", n)
	}
}

func TestNewFlightCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewFlightCollector(reg)
	if err != nil {
		t.Fatalf("first NewFlightCollector: %v", err)
	}
	second, err := NewFlightCollector(reg)
	if err != nil {
		t.Fatalf("second NewFlightCollector: %v", err)
	}
	second.Steps.Inc()
	if got := testutil.ToFloat64(first.Steps); got != 1 {
		t.Fatalf("collectors do not share ascent_steps_total: %v", got)
	}
}

func TestNilFlightCollectorIsSafe(t *testing.T) {
	var c *FlightCollector
	c.Observe(context.Background(), model.SimulationState{})
	c.RecordRun("apogee", time.Second)
}

func TestFlightHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewFlightCollector(reg)
	if err != nil {
		t.Fatalf("NewFlightCollector: %v", err)
	}
	c.Observe(context.Background(), model.SimulationState{Altitude: 42})
	c.RecordRun("ground_impact", time.Millisecond)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"ascent_altitude_meters 42",
		"ascent_velocity_mps",
		"ascent_mach",
		"ascent_drag_newtons",
		"ascent_air_density_kg_per_m3",
		"ascent_air_temperature_celsius",
		"ascent_steps_total 1",
		`ascent_runs_total{termination="ground_impact"} 1`,
		"ascent_run_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output:\n%s", want, body)
		}
	}
}

func TestAPICollectorInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}
	h := c.Instrument("/v1/vehicles/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/vehicles/x", nil))
	}

	if got := testutil.ToFloat64(c.Requests.WithLabelValues("/v1/vehicles/{id}", "get", "404")); got != 2 {
		t.Fatalf("ascent_api_requests_total = %v, want 2", got)
	}
	if n := histogramSampleCount(t, reg, "ascent_api_request_duration_seconds", map[string]string{
		"route": "/v1/vehicles/{id}",
		"code":  "404",
	}); n != 2 {
		t.Fatalf("ascent_api_request_duration_seconds sample_count = %d, want 2", n)
	}
}

func TestAPICollectorCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewAPICollector(reg)
	if err != nil {
		t.Fatalf("NewAPICollector: %v", err)
	}
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.CacheLookup(false)
	c.SetCacheEntries(2)

	if got := testutil.ToFloat64(c.CacheHits); got != 1 {
		t.Fatalf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.CacheMisses); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.CacheEntries); got != 2 {
		t.Fatalf("cache entries = %v, want 2", got)
	}
}

func TestRegisterRejectsIncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: "ascent_conflict", Help: "x"}), "ascent_conflict"); err != nil {
		t.Fatalf("register gauge: %v", err)
	}
	_, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: "ascent_conflict", Help: "x"}), "ascent_conflict")
	if err == nil {
		t.Fatalf("expected an error registering a counter over a gauge")
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	families, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	var total uint64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				total += m.GetHistogram().GetSampleCount()
			}
		}
	}
	return total
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/signalsfoundry/ascent-simulator/internal/config"
	"github.com/signalsfoundry/ascent-simulator/internal/logging"
)

func TestSimServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	v := config.New()
	v.Set("server.metrics_addr", "")
	v.Set("server.cache_size", 4)
	v.Set("max_steps", 5000)
	v.Set("log.level", "warn")
	cfg, err := config.Load(v, "")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	base := "http://" + lis.Addr().String()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("GET /ping = %q", body)
	}

	resp, err = client.Post(base+"/v1/simulations", "application/json", strings.NewReader(`{"max_steps":100}`))
	if err != nil {
		t.Fatalf("POST /v1/simulations: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /v1/simulations = %d: %s", resp.StatusCode, body)
	}
	if got := gjson.GetBytes(body, "summary.steps").Int(); got != 100 {
		t.Fatalf("summary.steps = %d: %s", got, body)
	}

	resp, err = client.Post(base+"/v1/simulations", "application/json", strings.NewReader(`{"max_steps":6000}`))
	if err != nil {
		t.Fatalf("POST over the step cap: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST over the step cap = %d, want 400", resp.StatusCode)
	}

	resp, err = client.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "ascent_steps_total 100") {
		t.Fatalf("/metrics missing step count")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--cache-size=-1", "--addr=127.0.0.1:0", "--log-level=error"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected an error for a negative cache size")
	}
}

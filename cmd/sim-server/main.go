// Command sim-server serves the vehicle catalogue and simulation runs over
// HTTP, with Prometheus metrics on a separate listener.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/ascent-simulator/internal/api"
	"github.com/signalsfoundry/ascent-simulator/internal/config"
	"github.com/signalsfoundry/ascent-simulator/internal/logging"
	"github.com/signalsfoundry/ascent-simulator/internal/observability"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/kb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:          "sim-server",
		Short:        "Serve ascent simulations over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			log := logging.New(cfg.LoggingConfig())
			ctx := cmd.Context()

			shutdown, err := observability.InitTracing(ctx, cfg.Tracing, log)
			if err != nil {
				log.Error(ctx, "failed to initialise tracing", logging.Err(err))
				return err
			}
			defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

			lis, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				log.Error(ctx, "failed to listen", logging.String("addr", cfg.Server.Addr), logging.Err(err))
				return err
			}
			return run(ctx, cfg, log, lis)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	fs.Int("max-steps", sim.DefaultMaxSteps, "largest step guard a request may ask for")
	config.ServerFlags(fs)
	config.LoggingFlags(fs)
	config.TracingFlags(fs)
	cobra.CheckErr(config.BindFlags(v, fs))

	return cmd
}

// run serves the API on lis (and metrics on cfg.Server.MetricsAddr when set)
// until ctx ends.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	flight, err := observability.NewFlightCollector(reg)
	if err != nil {
		return err
	}
	apiMetrics, err := observability.NewAPICollector(reg)
	if err != nil {
		return err
	}

	opts := api.Options{
		KB:                  kb.NewSeeded(),
		Logger:              log,
		CacheSize:           cfg.Server.CacheSize,
		CacheMaxPoints:      cfg.Server.CacheMaxPoints,
		MaxTrajectoryPoints: cfg.Server.MaxPoints,
		MaxSteps:            cfg.MaxSteps,
		APIMetrics:          apiMetrics,
		FlightMetrics:       flight,
	}
	if cfg.Server.MetricsAddr == "" {
		opts.MetricsHandler = flight.Handler()
	}
	srv, err := api.NewServer(opts)
	if err != nil {
		return err
	}
	defer srv.Close()

	servers := []*http.Server{{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "serving API", logging.String("addr", lis.Addr().String()))
		return serve(servers[0], lis)
	})

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", flight.Handler())
		metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		servers = append(servers, metricsSrv)
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", cfg.Server.MetricsAddr))
			return serve(metricsSrv, nil)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down sim-server")
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var errs []error
		for _, s := range servers {
			errs = append(errs, s.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// serve runs s on lis, or on s.Addr when lis is nil. A graceful shutdown is
// not an error.
func serve(s *http.Server, lis net.Listener) error {
	var err error
	if lis != nil {
		err = s.Serve(lis)
	} else {
		err = s.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

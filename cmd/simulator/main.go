// Command simulator flies one vertical ascent and prints a line per step
// followed by a run summary.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/internal/config"
	"github.com/signalsfoundry/ascent-simulator/internal/logging"
	"github.com/signalsfoundry/ascent-simulator/internal/observability"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/kb"
	"github.com/signalsfoundry/ascent-simulator/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type runFlags struct {
	configFile      string
	initialVelocity float64
	quiet           bool
	noSummary       bool
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var flags runFlags

	cmd := &cobra.Command{
		Use:          "simulator",
		Short:        "Simulate a single-stage vertical rocket ascent",
		Long:         "Integrates a vertical ascent through the standard atmosphere with explicit Euler steps until the vehicle stops climbing.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, flags.configFile)
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			shutdown, err := observability.InitTracing(ctx, cfg.Tracing, log)
			if err != nil {
				return err
			}
			defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

			return fly(ctx, cfg, flags, cmd.OutOrStdout(), log)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.configFile, "config", "", "config file (yaml, json or toml)")
	fs.Float64Var(&flags.initialVelocity, "initial-velocity", 0, "upward velocity at ignition (m/s)")
	fs.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress the per-step report lines")
	fs.BoolVar(&flags.noSummary, "no-summary", false, "do not print the run summary")
	config.SimulationFlags(fs)
	config.LoggingFlags(fs)
	config.TracingFlags(fs)
	cobra.CheckErr(config.BindFlags(v, fs))

	return cmd
}

// newLogger keeps stdout for the report: logs go to w unless a log file is
// configured.
func newLogger(cfg config.Config, w io.Writer) logging.Logger {
	lc := cfg.LoggingConfig()
	if lc.File != "" {
		return logging.New(lc)
	}
	return logging.NewWithWriter(lc, w)
}

func fly(ctx context.Context, cfg config.Config, flags runFlags, out io.Writer, log logging.Logger) error {
	vehicle, err := resolveVehicle(cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "vehicle selected",
		logging.String("vehicle", vehicle.ID),
		logging.Float("dry_mass", vehicle.Constants.DryMass),
		logging.String("drag_mode", vehicle.Constants.DragMode.String()),
	)

	fi, err := core.NewFlightIntegrator(vehicle.Constants)
	if err != nil {
		return err
	}
	if flags.initialVelocity != 0 {
		st := model.InitialState()
		st.Velocity = flags.initialVelocity
		fi.Seed(st)
	}
	profile, err := sim.ProfileFor(vehicle.Thrust, vehicle.ThrustCurve)
	if err != nil {
		return err
	}
	opts, err := cfg.RunOptions()
	if err != nil {
		return err
	}
	opts.Logger = log

	w := bufio.NewWriter(out)
	var observers []sim.Observer
	var reporter *sim.Reporter
	if !flags.quiet {
		reporter = sim.NewReporter(w)
		observers = append(observers, reporter)
	}

	res, runErr := sim.Run(ctx, fi, profile, opts, observers...)
	if reporter != nil && reporter.Err() != nil {
		log.Warn(ctx, "report output failed", logging.Err(reporter.Err()))
	}
	if err := w.Flush(); err != nil {
		log.Warn(ctx, "report output failed", logging.Err(err))
	}
	if !flags.noSummary && res.Steps > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, res.Summary.String())
	}
	return runErr
}

func resolveVehicle(cfg config.Config) (*model.VehicleProfile, error) {
	if cfg.Vehicle == "" {
		return cfg.AdHocVehicle()
	}
	return kb.NewSeeded().GetVehicle(cfg.Vehicle)
}

// Package config loads simulator, server, logging and tracing settings.
// Sources, highest precedence first: command-line flags, ASCENT_* environment
// variables, an optional config file (YAML, JSON or TOML), built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/ascent-simulator/core"
	"github.com/signalsfoundry/ascent-simulator/internal/logging"
	"github.com/signalsfoundry/ascent-simulator/internal/observability"
	"github.com/signalsfoundry/ascent-simulator/internal/sim"
	"github.com/signalsfoundry/ascent-simulator/model"
	"github.com/signalsfoundry/ascent-simulator/timectrl"
)

// EnvPrefix prefixes every environment variable; "log.level" is read from
// ASCENT_LOG_LEVEL.
const EnvPrefix = "ASCENT"

// Config is the fully resolved configuration.
type Config struct {
	Gravity        float64 `mapstructure:"gravity"`
	Area           float64 `mapstructure:"area"`
	DryMass        float64 `mapstructure:"dry_mass"`
	TimeStep       float64 `mapstructure:"time_step"`
	LaunchAltitude float64 `mapstructure:"launch_altitude"`
	DragMode       string  `mapstructure:"drag_mode"`

	Thrust      float64 `mapstructure:"thrust"`
	ThrustCurve string  `mapstructure:"thrust_curve"`

	MaxSteps int     `mapstructure:"max_steps"`
	MaxTime  float64 `mapstructure:"max_time"`
	Pace     bool    `mapstructure:"pace"`

	// Vehicle names a catalogue profile whose constants and thrust program
	// replace the physical keys above.
	Vehicle string `mapstructure:"vehicle"`

	Log     LogConfig                   `mapstructure:"log"`
	Server  ServerConfig                `mapstructure:"server"`
	Tracing observability.TracingConfig `mapstructure:"tracing"`
}

// LogConfig mirrors logging.Config under the "log" key.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ServerConfig configures cmd/sim-server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	CacheSize       int           `mapstructure:"cache_size"`
	CacheMaxPoints  int           `mapstructure:"cache_max_points"`
	MaxPoints       int           `mapstructure:"max_trajectory_points"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"gravity":          "gravity",
	"area":             "area",
	"dry-mass":         "dry_mass",
	"time-step":        "time_step",
	"launch-altitude":  "launch_altitude",
	"drag-mode":        "drag_mode",
	"thrust":           "thrust",
	"thrust-curve":     "thrust_curve",
	"max-steps":        "max_steps",
	"max-time":         "max_time",
	"pace":             "pace",
	"vehicle":          "vehicle",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"log-file":         "log.file",
	"addr":             "server.addr",
	"metrics-addr":     "server.metrics_addr",
	"cache-size":       "server.cache_size",
	"cache-max-points": "server.cache_max_points",
	"max-points":       "server.max_trajectory_points",
	"tracing":          "tracing.enabled",
	"tracing-exporter": "tracing.exporter",
	"tracing-endpoint": "tracing.endpoint",
}

// New returns a viper instance with defaults and environment binding in place.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	c := model.DefaultPhysicalConstants()
	v.SetDefault("gravity", c.Gravity)
	v.SetDefault("area", c.CrossSectionArea)
	v.SetDefault("dry_mass", c.DryMass)
	v.SetDefault("time_step", c.TimeStep)
	v.SetDefault("launch_altitude", c.LaunchAltitude)
	v.SetDefault("drag_mode", c.DragMode.String())
	v.SetDefault("thrust", model.ReferenceThrust)
	v.SetDefault("thrust_curve", "")
	v.SetDefault("max_steps", sim.DefaultMaxSteps)
	v.SetDefault("max_time", 0.0)
	v.SetDefault("pace", false)
	v.SetDefault("vehicle", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 32)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.cache_size", 128)
	v.SetDefault("server.cache_max_points", 1_000)
	v.SetDefault("server.max_trajectory_points", 10_000)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	t := observability.DefaultTracingConfig()
	v.SetDefault("tracing.enabled", t.Enabled)
	v.SetDefault("tracing.service_name", t.ServiceName)
	v.SetDefault("tracing.exporter", t.Exporter)
	v.SetDefault("tracing.endpoint", t.Endpoint)
	v.SetDefault("tracing.sample_ratio", t.SampleRatio)
}

// SimulationFlags registers the physical and run flags on fs.
func SimulationFlags(fs *pflag.FlagSet) {
	c := model.DefaultPhysicalConstants()
	fs.Float64("gravity", c.Gravity, "gravitational acceleration (m/s²)")
	fs.Float64("area", c.CrossSectionArea, "frontal cross-section area (m²)")
	fs.Float64("dry-mass", c.DryMass, "vehicle mass (kg)")
	fs.Float64("time-step", c.TimeStep, "integration step (s)")
	fs.Float64("launch-altitude", c.LaunchAltitude, "pad altitude above sea level (m)")
	fs.String("drag-mode", c.DragMode.String(), "drag sign convention: ascent (always opposes climb) or motion (opposes velocity)")
	fs.Float64("thrust", model.ReferenceThrust, "constant thrust (N)")
	fs.String("thrust-curve", "", `piecewise-linear thrust program "t:N,t:N,..." (overrides --thrust)`)
	fs.Int("max-steps", sim.DefaultMaxSteps, "step guard")
	fs.Float64("max-time", 0, "simulated-time guard in seconds (0 disables)")
	fs.Bool("pace", false, "pace steps against the wall clock")
	fs.String("vehicle", "", "catalogue vehicle to fly instead of the physical flags")
}

// LoggingFlags registers the log flags on fs.
func LoggingFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text or json")
	fs.String("log-file", "", "write logs to a rotating file instead of stdout")
}

// ServerFlags registers the HTTP server flags on fs.
func ServerFlags(fs *pflag.FlagSet) {
	fs.String("addr", ":8080", "API listen address")
	fs.String("metrics-addr", ":9090", "Prometheus /metrics listen address (empty serves metrics on the API listener)")
	fs.Int("cache-size", 128, "simulation result cache entries")
	fs.Int("cache-max-points", 1_000, "longest trajectory kept in the result cache")
	fs.Int("max-points", 10_000, "trajectory points a simulation response may carry")
}

// TracingFlags registers the tracing flags on fs.
func TracingFlags(fs *pflag.FlagSet) {
	fs.Bool("tracing", false, "enable OpenTelemetry tracing")
	fs.String("tracing-exporter", "stdout", "span exporter: stdout or otlp")
	fs.String("tracing-endpoint", "", "OTLP gRPC collector endpoint")
}

// BindFlags binds every known flag present in fs to its key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, fmt.Errorf("bind --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Load reads file (when non-empty) and decodes v into a validated Config.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks everything that can be checked without the vehicle
// catalogue.
func (c Config) Validate() error {
	if c.Vehicle == "" {
		if _, err := c.Constants(); err != nil {
			return err
		}
		if _, err := sim.ProfileFor(c.Thrust, c.ThrustCurve); err != nil {
			return err
		}
	}
	if _, err := c.RunOptions(); err != nil {
		return err
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server.cache_size must not be negative, got %d", c.Server.CacheSize)
	}
	if c.Server.CacheMaxPoints < 0 {
		return fmt.Errorf("server.cache_max_points must not be negative, got %d", c.Server.CacheMaxPoints)
	}
	if c.Server.MaxPoints < 2 {
		return fmt.Errorf("server.max_trajectory_points must be at least 2, got %d", c.Server.MaxPoints)
	}
	return nil
}

// Constants returns the validated physical constants described by the
// physical keys.
func (c Config) Constants() (model.PhysicalConstants, error) {
	mode, ok := model.ParseDragMode(c.DragMode)
	if !ok {
		return model.PhysicalConstants{}, &core.ConfigurationError{Field: "drag_mode", Reason: fmt.Sprintf("unknown mode %q", c.DragMode)}
	}
	pc := model.PhysicalConstants{
		Gravity:          c.Gravity,
		CrossSectionArea: c.Area,
		DryMass:          c.DryMass,
		TimeStep:         c.TimeStep,
		LaunchAltitude:   c.LaunchAltitude,
		DragMode:         mode,
	}
	if err := core.ValidateConstants(pc); err != nil {
		return model.PhysicalConstants{}, err
	}
	return pc, nil
}

// AdHocVehicle describes the vehicle the physical keys define.
func (c Config) AdHocVehicle() (*model.VehicleProfile, error) {
	pc, err := c.Constants()
	if err != nil {
		return nil, err
	}
	return &model.VehicleProfile{
		ID:          "ad-hoc",
		Name:        "Command-line vehicle",
		Constants:   pc,
		Thrust:      c.Thrust,
		ThrustCurve: c.ThrustCurve,
	}, nil
}

// RunOptions returns the run guards and pacing.
func (c Config) RunOptions() (sim.Options, error) {
	if c.MaxSteps <= 0 {
		return sim.Options{}, &core.ConfigurationError{Field: "max_steps", Value: float64(c.MaxSteps), Reason: "must be positive"}
	}
	if c.MaxTime < 0 {
		return sim.Options{}, &core.ConfigurationError{Field: "max_time", Value: c.MaxTime, Reason: "must not be negative"}
	}
	opts := sim.DefaultOptions()
	opts.MaxSteps = c.MaxSteps
	opts.MaxTime = c.MaxTime
	if c.Pace {
		if c.Vehicle == "" && timectrl.TickFromSeconds(c.TimeStep) <= 0 {
			return sim.Options{}, &core.ConfigurationError{Field: "time_step", Value: c.TimeStep, Reason: "cannot be paced against the wall clock"}
		}
		opts.Mode = timectrl.RealTime
	}
	return opts, nil
}

// LoggingConfig converts the "log" section for logging.New.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}

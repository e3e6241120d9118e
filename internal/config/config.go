// Package config loads wareflow settings from defaults, a YAML file and
// WAREFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/wareflow/pkg/correction"
	"github.com/vnykmshr/wareflow/pkg/engine"
	"github.com/vnykmshr/wareflow/pkg/progress"
	"github.com/vnykmshr/wareflow/pkg/scheduling/assign"
	"github.com/vnykmshr/wareflow/pkg/scheduling/rules"
	"github.com/vnykmshr/wareflow/pkg/store"
	"github.com/vnykmshr/wareflow/pkg/warehouse"
)

// EnvPrefix prefixes environment overrides, e.g. WAREFLOW_SYNTH_ORDERS.
const EnvPrefix = "WAREFLOW"

// Config is the complete wareflow configuration.
type Config struct {
	Warehouse  warehouse.Layout   `mapstructure:"warehouse" yaml:"warehouse"`
	Rules      []rules.Definition `mapstructure:"rules" yaml:"rules"`
	Scheduler  SchedulerConfig    `mapstructure:"scheduler" yaml:"scheduler"`
	Assignment AssignmentConfig   `mapstructure:"assignment" yaml:"assignment"`
	Correction CorrectionConfig   `mapstructure:"correction" yaml:"correction"`
	Dispatch   DispatchConfig     `mapstructure:"dispatch" yaml:"dispatch"`
	Synth      SynthConfig        `mapstructure:"synth" yaml:"synth"`
	Progress   ProgressConfig     `mapstructure:"progress" yaml:"progress"`
	Store      store.Config       `mapstructure:"store" yaml:"store"`
	Serve      ServeConfig        `mapstructure:"serve" yaml:"serve"`
	Logging    LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// SchedulerConfig controls rule selection.
type SchedulerConfig struct {
	// Sensitivity is the mean feature change required to switch rules.
	Sensitivity float64 `mapstructure:"sensitivity" yaml:"sensitivity"`
	// BacklogCapacity is the order count that maps to a backlog of 1.0.
	BacklogCapacity int `mapstructure:"backlog_capacity" yaml:"backlog_capacity"`
	// RunTimeout bounds one pipeline run (0 = no limit).
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
}

// AssignmentConfig controls equipment matching.
type AssignmentConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// Fallback is "reuse" (first registered unit) or "fail".
	Fallback string `mapstructure:"fallback" yaml:"fallback"`
}

// CorrectionConfig controls deviation analysis.
type CorrectionConfig struct {
	Threshold         float64 `mapstructure:"threshold" yaml:"threshold"`
	PredictedProgress int     `mapstructure:"predicted_progress" yaml:"predicted_progress"`
	// Compare is "status" or "position".
	Compare string `mapstructure:"compare" yaml:"compare"`
}

// DispatchConfig controls command delivery.
type DispatchConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
	// Rate is commands per second (0 = unlimited).
	Rate    float64       `mapstructure:"rate" yaml:"rate"`
	Burst   int           `mapstructure:"burst" yaml:"burst"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SynthConfig controls the synthetic data generator.
type SynthConfig struct {
	Orders int    `mapstructure:"orders" yaml:"orders"`
	Seed   uint64 `mapstructure:"seed" yaml:"seed"`
}

// ProgressConfig controls the progress logger.
type ProgressConfig struct {
	Total int `mapstructure:"total" yaml:"total"`
}

// ServeConfig controls the long-running server.
type ServeConfig struct {
	// Cron is a six-field expression or descriptor for scheduled runs.
	Cron        string `mapstructure:"cron" yaml:"cron"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	// GRPCAddr serves the health service; empty disables it.
	GRPCAddr string `mapstructure:"grpc_addr" yaml:"grpc_addr"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns a Config with the demonstration warehouse.
func Default() *Config {
	return &Config{
		Warehouse: warehouse.DefaultLayout(),
		Rules:     rules.DefaultDefinitions(),
		Scheduler: SchedulerConfig{
			Sensitivity:     rules.DefaultSensitivity,
			BacklogCapacity: rules.DefaultBacklogCapacity,
		},
		Assignment: AssignmentConfig{
			Interval: assign.DefaultInterval,
			Fallback: string(assign.PolicyReuse),
		},
		Correction: CorrectionConfig{
			Threshold:         correction.DefaultThreshold,
			PredictedProgress: correction.DefaultPredictedProgress,
			Compare:           string(correction.CompareStatus),
		},
		Dispatch: DispatchConfig{
			Workers: 4,
			Burst:   10,
		},
		Synth: SynthConfig{
			Orders: 5,
			Seed:   42,
		},
		Progress: ProgressConfig{Total: progress.DefaultTotal},
		Store:    store.DefaultConfig(),
		Serve: ServeConfig{
			Cron:        "@every 5m",
			MetricsAddr: ":9090",
			GRPCAddr:    ":9091",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("warehouse.partitions", defaults.Warehouse.Partitions)
	v.SetDefault("warehouse.links", defaults.Warehouse.Links)
	v.SetDefault("warehouse.fleets", defaults.Warehouse.Fleets)
	v.SetDefault("warehouse.materials", defaults.Warehouse.Materials)

	v.SetDefault("rules", defaults.Rules)

	v.SetDefault("scheduler.sensitivity", defaults.Scheduler.Sensitivity)
	v.SetDefault("scheduler.backlog_capacity", defaults.Scheduler.BacklogCapacity)
	v.SetDefault("scheduler.run_timeout", defaults.Scheduler.RunTimeout)

	v.SetDefault("assignment.interval", defaults.Assignment.Interval)
	v.SetDefault("assignment.fallback", defaults.Assignment.Fallback)

	v.SetDefault("correction.threshold", defaults.Correction.Threshold)
	v.SetDefault("correction.predicted_progress", defaults.Correction.PredictedProgress)
	v.SetDefault("correction.compare", defaults.Correction.Compare)

	v.SetDefault("dispatch.workers", defaults.Dispatch.Workers)
	v.SetDefault("dispatch.rate", defaults.Dispatch.Rate)
	v.SetDefault("dispatch.burst", defaults.Dispatch.Burst)
	v.SetDefault("dispatch.timeout", defaults.Dispatch.Timeout)

	v.SetDefault("synth.orders", defaults.Synth.Orders)
	v.SetDefault("synth.seed", defaults.Synth.Seed)

	v.SetDefault("progress.total", defaults.Progress.Total)

	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("store.redis.addr", defaults.Store.Redis.Addr)
	v.SetDefault("store.redis.password", defaults.Store.Redis.Password)
	v.SetDefault("store.redis.db", defaults.Store.Redis.DB)
	v.SetDefault("store.redis.prefix", defaults.Store.Redis.Prefix)
	v.SetDefault("store.redis.ttl", defaults.Store.Redis.TTL)
	v.SetDefault("store.redis.keep", defaults.Store.Redis.Keep)

	v.SetDefault("serve.cron", defaults.Serve.Cron)
	v.SetDefault("serve.metrics_addr", defaults.Serve.MetricsAddr)
	v.SetDefault("serve.grpc_addr", defaults.Serve.GRPCAddr)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// New returns a viper instance with defaults, environment overrides and,
// when found, the config file. An empty cfgFile searches ConfigDir and the
// working directory for config.yaml.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	// WAREFLOW_SYNTH_ORDERS overrides synth.orders
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Watch reloads the config whenever the file changes and passes the result
// to onChange. Invalid files are reported through err and leave the caller's
// current config untouched.
func Watch(v *viper.Viper, onChange func(cfg *Config, err error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(Load(v))
	})
	v.WatchConfig()
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: ensure dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}

// ConfigDir returns the user's wareflow config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wareflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wareflow"
	}
	return filepath.Join(home, ".config", "wareflow")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Engine converts c into engine settings.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		Layout:          c.Warehouse,
		Orders:          c.Synth.Orders,
		Seed:            c.Synth.Seed,
		BacklogCapacity: c.Scheduler.BacklogCapacity,
		Sensitivity:     c.Scheduler.Sensitivity,
		Fallback:        assign.Policy(c.Assignment.Fallback),
		Interval:        c.Assignment.Interval,
		Correction: correction.Config{
			Threshold:         c.Correction.Threshold,
			PredictedProgress: c.Correction.PredictedProgress,
			Compare:           correction.CompareMode(c.Correction.Compare),
		},
		Workers:       c.Dispatch.Workers,
		TaskTimeout:   c.Dispatch.Timeout,
		Rate:          c.Dispatch.Rate,
		Burst:         c.Dispatch.Burst,
		ProgressTotal: c.Progress.Total,
		Timeout:       c.Scheduler.RunTimeout,
	}
}

// Describe returns the configured description of r, or "".
func (c *Config) Describe(r rules.Rule) string {
	for _, d := range c.Rules {
		if d.Name == r {
			return d.Description
		}
	}
	return ""
}

// The YAML encoder writes time.Duration as nanoseconds; these write the
// human form that viper decodes back.

func (c SchedulerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Sensitivity     float64 `yaml:"sensitivity"`
		BacklogCapacity int     `yaml:"backlog_capacity"`
		RunTimeout      string  `yaml:"run_timeout"`
	}{c.Sensitivity, c.BacklogCapacity, c.RunTimeout.String()}, nil
}

func (c AssignmentConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Interval string `yaml:"interval"`
		Fallback string `yaml:"fallback"`
	}{c.Interval.String(), c.Fallback}, nil
}

func (c DispatchConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Workers int     `yaml:"workers"`
		Rate    float64 `yaml:"rate"`
		Burst   int     `yaml:"burst"`
		Timeout string  `yaml:"timeout"`
	}{c.Workers, c.Rate, c.Burst, c.Timeout.String()}, nil
}

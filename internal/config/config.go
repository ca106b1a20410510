// Package config loads application configuration from file and environment
// and owns the global logger setup.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/calibration-engine/internal/calibrate"
	"github.com/sells-group/calibration-engine/internal/curve"
	"github.com/sells-group/calibration-engine/internal/heuristic"
	"github.com/sells-group/calibration-engine/internal/jobs"
	"github.com/sells-group/calibration-engine/internal/store"
	"github.com/sells-group/calibration-engine/internal/trust"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig         `yaml:"store" mapstructure:"store"`
	Calibration CalibrationConfig   `yaml:"calibration" mapstructure:"calibration"`
	Monitoring  MonitoringConfig    `yaml:"monitoring" mapstructure:"monitoring"`
	Heuristic   heuristic.Config    `yaml:"heuristic" mapstructure:"heuristic"`
	Curves      curve.BuilderConfig `yaml:"curves" mapstructure:"curves"`
	Drift       jobs.DriftConfig    `yaml:"drift" mapstructure:"drift"`
	Maturity    jobs.MaturityConfig `yaml:"maturity" mapstructure:"maturity"`
	Trust       TrustConfig         `yaml:"trust" mapstructure:"trust"`
	Jobs        JobsConfig          `yaml:"jobs" mapstructure:"jobs"`
	Log         LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CalibrationConfig holds the feature switches for the fallback chain.
// Curves stay off by default; turning them on is an explicit operator
// decision after curves have been built, reviewed, and activated.
type CalibrationConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	RegionEnabled bool `yaml:"region_enabled" mapstructure:"region_enabled"`
	CurvesEnabled bool `yaml:"curves_enabled" mapstructure:"curves_enabled"`
}

// Flags converts the config switches to chain flags.
func (c CalibrationConfig) Flags() calibrate.Flags {
	return calibrate.Flags{
		Enabled:       c.Enabled,
		RegionEnabled: c.RegionEnabled,
		CurvesEnabled: c.CurvesEnabled,
	}
}

// MonitoringConfig gates the monitoring jobs: drift detection, maturity
// scoring, and recommendations. Off by default so a fresh deployment ships
// dark; the monitoring layer stays inert until an operator opts in.
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// TrustConfig configures label source credibility weights.
type TrustConfig struct {
	Weights map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// JobsConfig configures batch job execution.
type JobsConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxScans  int `yaml:"max_scans" mapstructure:"max_scans"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CALIB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("calibration.enabled", true)
	v.SetDefault("calibration.region_enabled", true)
	v.SetDefault("calibration.curves_enabled", false)

	v.SetDefault("monitoring.enabled", false)

	h := heuristic.DefaultConfig()
	v.SetDefault("heuristic.age_scale", h.AgeScale)
	v.SetDefault("heuristic.recommendation_scale", h.RecommendationScale)
	v.SetDefault("heuristic.max_age_confidence", h.MaxAgeConfidence)
	v.SetDefault("heuristic.max_recommendation_confidence", h.MaxRecConfidence)
	v.SetDefault("heuristic.null_age_penalty", h.NullAgePenalty)
	v.SetDefault("heuristic.low_antler_info_penalty", h.LowAntlerInfoPenalty)
	v.SetDefault("heuristic.unknown_sex_penalty", h.UnknownSexPenalty)

	b := curve.DefaultBuilderConfig()
	v.SetDefault("curves.global_min_samples", b.GlobalMinSamples)
	v.SetDefault("curves.region_min_samples", b.RegionMinSamples)
	v.SetDefault("curves.bin_min_samples", b.BinMinSamples)

	d := jobs.DefaultDriftConfig()
	v.SetDefault("drift.warning_threshold", d.WarningThreshold)
	v.SetDefault("drift.critical_threshold", d.CriticalThreshold)
	v.SetDefault("drift.min_samples", d.MinSamples)
	v.SetDefault("drift.window_days", d.WindowDays)
	v.SetDefault("drift.age_baseline", d.AgeBaseline)
	v.SetDefault("drift.recommendation_baseline", d.RecommendationBaseline)

	m := jobs.DefaultMaturityConfig()
	v.SetDefault("maturity.medium_samples", m.MediumSamples)
	v.SetDefault("maturity.high_samples", m.HighSamples)
	v.SetDefault("maturity.stability_window_days", m.StabilityWindowDays)
	v.SetDefault("maturity.expert_bonus", m.ExpertBonus)

	v.SetDefault("trust.weights", map[string]float64(trust.DefaultWeights()))

	v.SetDefault("jobs.batch_size", 100)
	v.SetDefault("jobs.max_scans", 1_000_000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for values that would make a run
// misbehave in ways harder to diagnose than an upfront error.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported store driver: %s", c.Store.Driver))
	}

	if c.Drift.WarningThreshold <= 0 || c.Drift.CriticalThreshold <= 0 {
		problems = append(problems, "drift thresholds must be > 0")
	} else if c.Drift.CriticalThreshold < c.Drift.WarningThreshold {
		problems = append(problems, "drift.critical_threshold must be >= drift.warning_threshold")
	}

	if c.Maturity.HighSamples < c.Maturity.MediumSamples {
		problems = append(problems, "maturity.high_samples must be >= maturity.medium_samples")
	}

	for source, w := range c.Trust.Weights {
		if w < 0 || w > 1 {
			problems = append(problems, fmt.Sprintf("trust.weights.%s must be between 0 and 1", source))
		}
	}

	if c.Jobs.BatchSize < 0 {
		problems = append(problems, "jobs.batch_size must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Runner builds a job runner wired with this configuration.
func (c *Config) Runner(st store.Store) *jobs.Runner {
	r := jobs.NewRunner(st)
	r.Heuristic = c.Heuristic
	r.Builder = c.Curves
	r.Drift = c.Drift
	r.Maturity = c.Maturity
	r.Flags = c.Calibration.Flags()
	r.MonitoringEnabled = c.Monitoring.Enabled
	if len(c.Trust.Weights) > 0 {
		r.Trust = trust.Weights(c.Trust.Weights)
	}
	if c.Jobs.BatchSize > 0 {
		r.BatchSize = c.Jobs.BatchSize
	}
	if c.Jobs.MaxScans > 0 {
		r.MaxScans = c.Jobs.MaxScans
	}
	return r
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/capfit/internal/aggregate"
	"github.com/sells-group/capfit/internal/fitter"
)

// Config holds the full application configuration.
type Config struct {
	Fit       FitConfig       `yaml:"fit" mapstructure:"fit"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Progress  ProgressConfig  `yaml:"progress" mapstructure:"progress"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FitConfig configures the solver and the selector worker pool.
type FitConfig struct {
	Method         string  `yaml:"method" mapstructure:"method"`
	MaxIterations  int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	FTol           float64 `yaml:"ftol" mapstructure:"ftol"`
	XTol           float64 `yaml:"xtol" mapstructure:"xtol"`
	GTol           float64 `yaml:"gtol" mapstructure:"gtol"`
	InitialDamping float64 `yaml:"initial_damping" mapstructure:"initial_damping"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// AggregateConfig configures the relationship strategies.
type AggregateConfig struct {
	EWMAAlpha      float64 `yaml:"ewma_alpha" mapstructure:"ewma_alpha"`
	TrimFraction   float64 `yaml:"trim_fraction" mapstructure:"trim_fraction"`
	WinsorFraction float64 `yaml:"winsor_fraction" mapstructure:"winsor_fraction"`
	PolyDegree     int     `yaml:"poly_degree" mapstructure:"poly_degree"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
}

// ProgressConfig throttles progress logging.
type ProgressConfig struct {
	IntervalMs int `yaml:"interval_ms" mapstructure:"interval_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FitterOptions converts the fit section into solver options.
func (c FitConfig) FitterOptions() (fitter.Options, error) {
	method, err := fitter.ParseMethod(c.Method)
	if err != nil {
		return fitter.Options{}, err
	}
	return fitter.Options{
		Method:         method,
		MaxIterations:  c.MaxIterations,
		FTol:           c.FTol,
		XTol:           c.XTol,
		GTol:           c.GTol,
		InitialDamping: c.InitialDamping,
	}, nil
}

// Options converts the aggregate section into aggregator options.
func (c AggregateConfig) Options() aggregate.Options {
	return aggregate.Options{
		EWMAAlpha:      c.EWMAAlpha,
		TrimFraction:   c.TrimFraction,
		WinsorFraction: c.WinsorFraction,
		PolyDegree:     c.PolyDegree,
	}
}

// Load reads configuration from capfit.yaml in the working directory (if
// present) and CAPFIT_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("capfit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAPFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	fd := fitter.DefaultOptions()
	ad := aggregate.DefaultOptions()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fit.method", string(fd.Method))
	v.SetDefault("fit.max_iterations", fd.MaxIterations)
	v.SetDefault("fit.ftol", fd.FTol)
	v.SetDefault("fit.xtol", fd.XTol)
	v.SetDefault("fit.gtol", fd.GTol)
	v.SetDefault("fit.initial_damping", fd.InitialDamping)
	v.SetDefault("fit.concurrency", 4)
	v.SetDefault("aggregate.ewma_alpha", ad.EWMAAlpha)
	v.SetDefault("aggregate.trim_fraction", ad.TrimFraction)
	v.SetDefault("aggregate.winsor_fraction", ad.WinsorFraction)
	v.SetDefault("aggregate.poly_degree", ad.PolyDegree)
	v.SetDefault("report.format", "text")
	v.SetDefault("progress.interval_ms", 500)

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

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if _, err := fitter.ParseMethod(c.Fit.Method); err != nil {
		errs = append(errs, fmt.Sprintf("fit.method %q is not one of lm, nelder-mead", c.Fit.Method))
	}
	if c.Fit.MaxIterations < 1 {
		errs = append(errs, "fit.max_iterations must be > 0")
	}
	if c.Fit.FTol <= 0 || c.Fit.XTol <= 0 || c.Fit.GTol <= 0 {
		errs = append(errs, "fit tolerances (ftol, xtol, gtol) must be > 0")
	}
	if c.Fit.InitialDamping < 0 {
		errs = append(errs, "fit.initial_damping must be >= 0")
	}
	if c.Fit.Concurrency < 1 || c.Fit.Concurrency > 64 {
		errs = append(errs, fmt.Sprintf("fit.concurrency must be between 1 and 64, got %d", c.Fit.Concurrency))
	}
	if err := c.Aggregate.Options().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Report.Format {
	case "text", "json", "yaml":
	default:
		errs = append(errs, fmt.Sprintf("report.format %q is not one of text, json, yaml", c.Report.Format))
	}
	if c.Progress.IntervalMs < 0 {
		errs = append(errs, "progress.interval_ms must be >= 0")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not one of json, console", c.Log.Format))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
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

// Package config loads nightwatch settings from a YAML file, with defaults
// matching the thresholds the analyzer was tuned with.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configurable nightwatch settings.
type Config struct {
	// AnalyzeDir is the directory Ekos writes .analyze files into.
	AnalyzeDir string `yaml:"analyze_dir"`
	// Webhook is the chat webhook URL; empty means log-only output.
	Webhook string `yaml:"webhook"`
	// Hours is the batch report lookback window.
	Hours int `yaml:"hours"`
	// ReportLevel is "minimal", "standard" or "detailed". Detailed reports
	// enable the advanced metrics pass.
	ReportLevel string `yaml:"report_level"`
	// AllowOversized disables the outgoing message length ceiling.
	AllowOversized bool `yaml:"allow_oversized"`

	Realtime        Realtime        `yaml:"realtime"`
	Guiding         Guiding         `yaml:"guiding"`
	AlertThresholds AlertThresholds `yaml:"alert_thresholds"`
	Plotting        Plotting        `yaml:"plotting"`
}

// Realtime configures the streaming monitor.
type Realtime struct {
	PollIntervalSeconds         float64 `yaml:"poll_interval_seconds"`
	SessionTimeoutMinutes       float64 `yaml:"session_timeout_minutes"`
	ObservatoryName             string  `yaml:"observatory_name"`
	GuideLostThresholdSeconds   float64 `yaml:"guide_lost_threshold_seconds"`
	ReacquireAlertCount         int     `yaml:"reacquire_alert_count"`
	ReacquireAlertWindowSeconds float64 `yaml:"reacquire_alert_window_seconds"`
	MinMessageIntervalSeconds   float64 `yaml:"min_message_interval_seconds"`
	// MetricsListenAddr exposes Prometheus counters when non-empty,
	// e.g. ":9465".
	MetricsListenAddr string `yaml:"metrics_listen_addr"`
}

// Guiding configures guide-quality classification. When ArcsecPerPixel is
// set, distances are converted to pixels and classified against the pixel
// thresholds; otherwise fixed arcsecond thresholds apply.
type Guiding struct {
	ArcsecPerPixel float64 `yaml:"arcsec_per_pixel"`
	ExcellentPx    float64 `yaml:"excellent_px"`
	GoodPx         float64 `yaml:"good_px"`
	AveragePx      float64 `yaml:"average_px"`
}

// AlertThresholds configures the metrics layer's alert triggers.
type AlertThresholds struct {
	HFRDriftWarning         float64 `yaml:"hfr_drift_warning"`
	TemperatureSwingWarning float64 `yaml:"temperature_swing_warning"`
	SuccessRateWarning      float64 `yaml:"success_rate_warning"`
}

// Plotting configures the chart output.
type Plotting struct {
	OutputDir string `yaml:"output_dir"`
	Theme     string `yaml:"theme"`
}

// Defaults returns the configuration used when no file overrides it.
func Defaults() Config {
	return Config{
		AnalyzeDir:  "~/.local/share/kstars/analyze",
		Hours:       24,
		ReportLevel: "standard",
		Realtime: Realtime{
			PollIntervalSeconds:         2.0,
			SessionTimeoutMinutes:       30,
			GuideLostThresholdSeconds:   30.0,
			ReacquireAlertCount:         5,
			ReacquireAlertWindowSeconds: 300.0,
			MinMessageIntervalSeconds:   1.0,
		},
		Guiding: Guiding{
			ExcellentPx: 0.5,
			GoodPx:      1.0,
			AveragePx:   1.5,
		},
		AlertThresholds: AlertThresholds{
			HFRDriftWarning:         0.5,
			TemperatureSwingWarning: 5.0,
			SuccessRateWarning:      0.8,
		},
		Plotting: Plotting{
			OutputDir: ".",
			Theme:     "dark",
		},
	}
}

// Load reads the YAML config at path, applied over defaults. An empty path
// falls back to the NIGHTWATCH_CONFIG environment variable; if neither is
// set the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("NIGHTWATCH_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ParseError{Path: path, Err: err}
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Realtime.PollIntervalSeconds <= 0 {
		return errors.New("realtime.poll_interval_seconds must be positive")
	}
	if c.Realtime.SessionTimeoutMinutes <= 0 {
		return errors.New("realtime.session_timeout_minutes must be positive")
	}
	if c.Realtime.ReacquireAlertCount < 1 {
		return errors.New("realtime.reacquire_alert_count must be at least 1")
	}
	switch c.ReportLevel {
	case "minimal", "standard", "detailed":
	default:
		return fmt.Errorf("unknown report_level %q", c.ReportLevel)
	}
	return nil
}

// ExpandHome replaces a leading ~ in path with the user's home directory.
func ExpandHome(path string) string {
	if len(path) >= 2 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nightwatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NIGHTWATCH_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Hours != 24 {
		t.Errorf("Hours = %d, want 24", cfg.Hours)
	}
	if cfg.ReportLevel != "standard" {
		t.Errorf("ReportLevel = %q, want standard", cfg.ReportLevel)
	}
	if cfg.Realtime.PollIntervalSeconds != 2.0 {
		t.Errorf("PollIntervalSeconds = %v, want 2.0", cfg.Realtime.PollIntervalSeconds)
	}
	if cfg.AlertThresholds.HFRDriftWarning != 0.5 {
		t.Errorf("HFRDriftWarning = %v, want 0.5", cfg.AlertThresholds.HFRDriftWarning)
	}
	if cfg.Guiding.ArcsecPerPixel != 0 {
		t.Errorf("ArcsecPerPixel = %v, want 0 (arcsecond mode)", cfg.Guiding.ArcsecPerPixel)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
analyze_dir: /data/analyze
webhook: https://discord.example/api/webhooks/1/x
hours: 48
report_level: detailed
realtime:
  observatory_name: Backyard
  session_timeout_minutes: 45
guiding:
  arcsec_per_pixel: 2.06
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnalyzeDir != "/data/analyze" {
		t.Errorf("AnalyzeDir = %q", cfg.AnalyzeDir)
	}
	if cfg.Hours != 48 {
		t.Errorf("Hours = %d, want 48", cfg.Hours)
	}
	if cfg.ReportLevel != "detailed" {
		t.Errorf("ReportLevel = %q, want detailed", cfg.ReportLevel)
	}
	if cfg.Realtime.ObservatoryName != "Backyard" {
		t.Errorf("ObservatoryName = %q", cfg.Realtime.ObservatoryName)
	}
	if cfg.Realtime.SessionTimeoutMinutes != 45 {
		t.Errorf("SessionTimeoutMinutes = %v, want 45", cfg.Realtime.SessionTimeoutMinutes)
	}
	// Untouched sections keep their defaults.
	if cfg.Realtime.PollIntervalSeconds != 2.0 {
		t.Errorf("PollIntervalSeconds = %v, want default 2.0", cfg.Realtime.PollIntervalSeconds)
	}
	if cfg.Guiding.ExcellentPx != 0.5 {
		t.Errorf("ExcellentPx = %v, want default 0.5", cfg.Guiding.ExcellentPx)
	}
	if cfg.Guiding.ArcsecPerPixel != 2.06 {
		t.Errorf("ArcsecPerPixel = %v, want 2.06", cfg.Guiding.ArcsecPerPixel)
	}
}

func TestLoadEnvFallback(t *testing.T) {
	path := writeConfig(t, "hours: 12\n")
	t.Setenv("NIGHTWATCH_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Hours != 12 {
		t.Errorf("Hours = %d, want 12", cfg.Hours)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeConfig(t, "hours: [not a number\n")

	_, err := Load(path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", perr.Path, path)
	}
	if perr.Unwrap() == nil {
		t.Error("ParseError should wrap the yaml error")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad report level",
			content: "report_level: verbose\n",
			wantErr: "report_level",
		},
		{
			name:    "zero poll interval",
			content: "realtime:\n  poll_interval_seconds: 0\n",
			wantErr: "poll_interval_seconds",
		},
		{
			name:    "negative session timeout",
			content: "realtime:\n  session_timeout_minutes: -5\n",
			wantErr: "session_timeout_minutes",
		},
		{
			name:    "zero reacquire count",
			content: "realtime:\n  reacquire_alert_count: 0\n",
			wantErr: "reacquire_alert_count",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	if got := ExpandHome("~/analyze"); got != filepath.Join(home, "analyze") {
		t.Errorf("ExpandHome(~/analyze) = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome(/abs/path) = %q", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("ExpandHome(~user/x) = %q", got)
	}
}

package config

import (
	"math"
	"os"
	"testing"
	"time"

	"github.com/kp7425/personalized-cyber/internal/engine"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("built-in defaults rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"zero window", func(c *Config) { c.WindowDays = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero half-life with decay on", func(c *Config) { c.DecayHalfLifeDays = 0 }},
		{"wrong band count", func(c *Config) { c.LevelBands = []float64{0.5} }},
		{"role weights not summing to one", func(c *Config) {
			c.RoleWeights["backend_developer"]["git"] = 0.9
		}},
		{"severity weight above one", func(c *Config) {
			c.Severity["siem"]["malware_detection"] = 1.2
		}},
		{"default role missing", func(c *Config) { c.DefaultRole = "nonexistent" }},
		{"role references unknown source", func(c *Config) {
			c.RoleWeights["default"] = map[string]float64{"satellite": 1.0}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config passed validation")
			}
		})
	}
}

func TestEngineConversion(t *testing.T) {
	cfg := Default()
	eng := cfg.Engine()

	if err := eng.Validate(); err != nil {
		t.Fatalf("converted engine config invalid: %v", err)
	}

	// 7-day half-life becomes ln2/7 per day.
	wantLambda := math.Ln2 / 7.0
	if math.Abs(eng.Decay.Lambda-wantLambda) > 1e-12 {
		t.Errorf("lambda = %v, want %v", eng.Decay.Lambda, wantLambda)
	}
	if !eng.Decay.Enabled {
		t.Error("decay disabled in conversion")
	}

	if got := eng.Tables.Severity[engine.SourceGit]["secret_detected"]; got != 0.3 {
		t.Errorf("severity git/secret_detected = %v, want 0.3", got)
	}
	if got := eng.Tables.RoleWeights["security_analyst"][engine.SourceSIEM]; got != 0.45 {
		t.Errorf("weight security_analyst/siem = %v, want 0.45", got)
	}
	if eng.Classifier.LevelBands != [3]float64{0.3, 0.5, 0.7} {
		t.Errorf("level bands = %v", eng.Classifier.LevelBands)
	}
	if eng.Correlation.PrivilegedIAMThreshold != 3 || eng.Correlation.SIEMAlertThreshold != 2 {
		t.Errorf("correlation thresholds = %+v", eng.Correlation)
	}
}

func TestBatchAndDurations(t *testing.T) {
	cfg := Default()
	cfg.RecomputeIntervalMin = 15

	batch := cfg.Batch()
	if batch.Workers != 8 || batch.RetryAttempts != 2 || batch.RetryBackoff != 100*time.Millisecond {
		t.Errorf("batch config = %+v", batch)
	}
	if got := cfg.AuthCacheTTL(); got != 30*time.Second {
		t.Errorf("auth cache ttl = %v", got)
	}
	if got := cfg.RecomputeInterval(); got != 15*time.Minute {
		t.Errorf("recompute interval = %v", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RISK_ADDR", ":9091")
	t.Setenv("RISK_WINDOW_DAYS", "14")
	t.Setenv("RISK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9091" {
		t.Errorf("addr = %q, want :9091", cfg.Addr)
	}
	if cfg.WindowDays != 14 {
		t.Errorf("window_days = %d, want 14", cfg.WindowDays)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	// Untouched keys keep their defaults.
	if cfg.Workers != 8 {
		t.Errorf("workers = %d, want default 8", cfg.Workers)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := t.TempDir() + "/risk.yaml"
	body := []byte("addr: \":7070\"\ndecay_half_life_days: 14\nsiem_alert_threshold: 5\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RISK_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":7070" {
		t.Errorf("addr = %q, want :7070", cfg.Addr)
	}
	if cfg.DecayHalfLifeDays != 14 {
		t.Errorf("decay_half_life_days = %v, want 14", cfg.DecayHalfLifeDays)
	}
	if cfg.SIEMAlertThreshold != 5 {
		t.Errorf("siem_alert_threshold = %d, want 5", cfg.SIEMAlertThreshold)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := t.TempDir() + "/risk.yaml"
	if err := os.WriteFile(path, []byte("addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RISK_CONFIG", path)
	t.Setenv("RISK_ADDR", ":6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":6060" {
		t.Errorf("addr = %q, env should override file", cfg.Addr)
	}
}

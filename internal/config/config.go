// Package config loads and validates service configuration: runtime
// settings plus the scoring tables (severity weights, role weight
// matrix, correlation thresholds, classifier bands). Layering, low to
// high: built-in defaults, YAML file named by RISK_CONFIG, env vars with
// the RISK_ prefix.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kp7425/personalized-cyber/internal/engine"
)

// ErrInvalidConfig marks configuration the engine must refuse to start
// with. Wraps engine.ErrConfig details where tables are at fault.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains process configuration.
type Config struct {
	LogLevel string `koanf:"log_level"`
	Addr     string `koanf:"addr"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	ClickHouseDSN string `koanf:"clickhouse_dsn"`

	// StaticServiceKey bypasses the Postgres key lookup for local runs.
	StaticServiceKey string `koanf:"static_service_key"`
	AuthCacheTTLSec  int    `koanf:"auth_cache_ttl_s"`

	WindowDays           int `koanf:"window_days"`
	Workers              int `koanf:"workers"`
	RetryAttempts        int `koanf:"retry_attempts"`
	RetryBackoffMS       int `koanf:"retry_backoff_ms"`
	RecomputeIntervalMin int `koanf:"recompute_interval_min"` // 0 disables the scheduler

	DecayEnabled      bool    `koanf:"decay_enabled"`
	DecayHalfLifeDays float64 `koanf:"decay_half_life_days"`

	PrivilegedIAMThreshold int `koanf:"privileged_iam_threshold"`
	SIEMAlertThreshold     int `koanf:"siem_alert_threshold"`

	LevelBands     []float64 `koanf:"level_bands"`
	FrequencyBands []float64 `koanf:"frequency_bands"`

	DefaultRole string                        `koanf:"default_role"`
	Severity    map[string]map[string]float64 `koanf:"severity"`
	RoleWeights map[string]map[string]float64 `koanf:"role_weights"`
}

// Default returns the built-in configuration, including the stock
// severity table and role weight matrix.
func Default() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		AuthCacheTTLSec:        30,
		WindowDays:             30,
		Workers:                8,
		RetryAttempts:          2,
		RetryBackoffMS:         100,
		RecomputeIntervalMin:   0,
		DecayEnabled:           true,
		DecayHalfLifeDays:      7,
		PrivilegedIAMThreshold: 3,
		SIEMAlertThreshold:     2,
		LevelBands:             []float64{0.3, 0.5, 0.7},
		FrequencyBands:         []float64{0.3, 0.6, 0.8},
		DefaultRole:            "default",
		Severity: map[string]map[string]float64{
			"git": {
				"commit":          0.0,
				"force_push":      0.1,
				"secret_detected": 0.3,
			},
			"iam": {
				"role_assumption":   0.05,
				"privileged_action": 0.15,
				"mfa_disabled":      0.2,
			},
			"siem": {
				"policy_violation":  0.1,
				"phishing_click":    0.2,
				"malware_detection": 0.3,
			},
			"training": {
				"ticket_approved":   0.0,
				"security_ticket":   0.05,
				"overdue_task":      0.1,
				"failed_assessment": 0.15,
			},
		},
		RoleWeights: map[string]map[string]float64{
			"backend_developer": {"git": 0.35, "iam": 0.25, "siem": 0.20, "training": 0.20},
			"devops_engineer":   {"git": 0.25, "iam": 0.35, "siem": 0.25, "training": 0.15},
			"security_analyst":  {"git": 0.10, "iam": 0.25, "siem": 0.45, "training": 0.20},
			"product_manager":   {"git": 0.05, "iam": 0.25, "siem": 0.30, "training": 0.40},
			"default":           {"git": 0.25, "iam": 0.25, "siem": 0.25, "training": 0.25},
		},
	}
}

// Load builds a Config by layering defaults, optional YAML file, and env
// vars, then validates it. Validation failure is fatal at startup: wrong
// tables would produce systematically wrong scores for every employee.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("RISK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	// RISK_WINDOW_DAYS -> window_days, etc. Underscores preserved to
	// match the koanf tags on the struct.
	envProvider := env.Provider("RISK_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "risk_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration, including the scoring tables.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("%w: window_days must be >= 1", ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	}
	if c.DecayEnabled && c.DecayHalfLifeDays <= 0 {
		return fmt.Errorf("%w: decay_half_life_days must be > 0", ErrInvalidConfig)
	}
	if len(c.LevelBands) != 3 || len(c.FrequencyBands) != 3 {
		return fmt.Errorf("%w: level_bands and frequency_bands need exactly 3 thresholds", ErrInvalidConfig)
	}
	if err := c.Engine().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Engine converts the loaded tables and tuning into the engine's
// immutable configuration object.
func (c *Config) Engine() engine.Config {
	severity := make(engine.SeverityTable, len(c.Severity))
	for src, entries := range c.Severity {
		table := make(map[string]float64, len(entries))
		for eventType, weight := range entries {
			table[eventType] = weight
		}
		severity[engine.Source(src)] = table
	}

	roleWeights := make(engine.RoleWeightMatrix, len(c.RoleWeights))
	for role, row := range c.RoleWeights {
		weights := make(map[engine.Source]float64, len(row))
		for src, weight := range row {
			weights[engine.Source(src)] = weight
		}
		roleWeights[role] = weights
	}

	lambda := engine.DefaultDecayLambda
	if c.DecayHalfLifeDays > 0 {
		lambda = math.Ln2 / c.DecayHalfLifeDays
	}

	cfg := engine.Config{
		Tables: engine.Tables{
			Severity:    severity,
			RoleWeights: roleWeights,
			DefaultRole: c.DefaultRole,
		},
		Decay: engine.DecayConfig{
			Enabled: c.DecayEnabled,
			Lambda:  lambda,
		},
		Correlation: engine.CorrelationConfig{
			PrivilegedIAMThreshold: c.PrivilegedIAMThreshold,
			SIEMAlertThreshold:     c.SIEMAlertThreshold,
		},
		Classifier: engine.DefaultClassifierConfig(),
	}
	if len(c.LevelBands) == 3 {
		copy(cfg.Classifier.LevelBands[:], c.LevelBands)
	}
	if len(c.FrequencyBands) == 3 {
		copy(cfg.Classifier.FrequencyBands[:], c.FrequencyBands)
	}
	return cfg
}

// Batch returns the orchestrator tuning.
func (c *Config) Batch() engine.BatchConfig {
	return engine.BatchConfig{
		Workers:       c.Workers,
		RetryAttempts: c.RetryAttempts,
		RetryBackoff:  time.Duration(c.RetryBackoffMS) * time.Millisecond,
	}
}

// AuthCacheTTL returns the auth cache TTL as a duration.
func (c *Config) AuthCacheTTL() time.Duration {
	return time.Duration(c.AuthCacheTTLSec) * time.Second
}

// RecomputeInterval returns the scheduler interval; zero disables it.
func (c *Config) RecomputeInterval() time.Duration {
	return time.Duration(c.RecomputeIntervalMin) * time.Minute
}

// Package config loads the lifetime runtime configuration.
//
// Values are resolved in three layers: defaults, then an optional file
// (TOML or YAML, chosen by extension), then LIFETIME_* environment
// variables.
//
//	policy = "report"
//	capture_stacks = true
//
//	[log]
//	level = "debug"
//	json = true
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kolkov/lifetime/internal/lifetime/violation"
	"github.com/kolkov/lifetime/internal/observability"
)

// Environment overrides.
const (
	EnvPolicy        = "LIFETIME_POLICY"
	EnvCaptureStacks = "LIFETIME_CAPTURE_STACKS"
	EnvDedup         = "LIFETIME_DEDUP"
	EnvLogLevel      = "LIFETIME_LOG_LEVEL"
	EnvLogJSON       = "LIFETIME_LOG_JSON"
	EnvLogNoColor    = "LIFETIME_LOG_NOCOLOR"
	EnvMetricsAddr   = "LIFETIME_METRICS_ADDR"
)

// Config is the runtime configuration.
type Config struct {
	// Policy is what a fatal violation does: "panic" or "report".
	Policy string `toml:"policy" yaml:"policy"`

	// CaptureStacks records handle creation sites and violation stacks.
	CaptureStacks bool `toml:"capture_stacks" yaml:"capture_stacks"`

	// Dedup suppresses repeated non-fatal reports from the same site.
	Dedup bool `toml:"dedup" yaml:"dedup"`

	Log LogConfig `toml:"log" yaml:"log"`

	// MetricsAddr, when set, is where the demo serves /metrics.
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	JSON    bool   `toml:"json" yaml:"json"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Policy: violation.PolicyPanic.String(),
		Dedup:  true,
		Log:    LogConfig{Level: "info"},
	}
}

// Load resolves defaults, the file at path (if non-empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return fmt.Errorf("config load failed (%s): unsupported extension %q", path, filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvPolicy); ok {
		cfg.Policy = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvMetricsAddr); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	for name, dst := range map[string]*bool{
		EnvCaptureStacks: &cfg.CaptureStacks,
		EnvDedup:         &cfg.Dedup,
		EnvLogJSON:       &cfg.Log.JSON,
		EnvLogNoColor:    &cfg.Log.NoColor,
	} {
		raw, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = b
	}
	return nil
}

// Validate checks the policy and log level names.
func (c Config) Validate() error {
	if _, err := violation.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := observability.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: log level: %w", err)
	}
	return nil
}

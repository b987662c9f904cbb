package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	cmjstats "github.com/lucasjlepore/cmj-analyzer"
)

// EnvPrefix prefixes every environment override, e.g. CMJ_WORKERS.
const EnvPrefix = "CMJ_"

// EnvConfigPath names the variable holding the YAML config path.
const EnvConfigPath = EnvPrefix + "CONFIG"

// Load builds a Config by layering defaults, an optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. YAML file at path, or at $CMJ_CONFIG when path is empty
//  3. env (prefix CMJ_; CMJ_COLUMNS__TIME sets columns.time)
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// CMJ_WEIGHT_WINDOW -> weight_window; a double underscore nests.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	case c.Format != "csv" && c.Format != "parquet":
		return fmt.Errorf("%w: format must be csv or parquet, got %q", ErrInvalidConfig, c.Format)
	case c.SampleInterval < 0 || c.SampleInterval > cmjstats.MaxSampleInterval:
		return fmt.Errorf("%w: sample_interval must be in [0, %g], got %g", ErrInvalidConfig, cmjstats.MaxSampleInterval, c.SampleInterval)
	case c.WeightWindow < 1:
		return fmt.Errorf("%w: weight_window must be >= 1, got %d", ErrInvalidConfig, c.WeightWindow)
	case c.UnweightOffset < 0:
		return fmt.Errorf("%w: unweight_offset must be >= 0, got %d", ErrInvalidConfig, c.UnweightOffset)
	}
	switch cmjstats.TakeoffRule(c.TakeoffRule) {
	case cmjstats.TakeoffForce, cmjstats.TakeoffAcceleration:
	default:
		return fmt.Errorf("%w: takeoff_rule must be force or acceleration, got %q", ErrInvalidConfig, c.TakeoffRule)
	}
	for key, label := range map[string]string{
		"time":     c.Columns.Time,
		"velocity": c.Columns.Velocity,
		"left":     c.Columns.Left,
		"right":    c.Columns.Right,
		"combined": c.Columns.Combined,
	} {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%w: columns.%s must not be empty", ErrInvalidConfig, key)
		}
	}
	return nil
}

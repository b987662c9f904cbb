// Package config holds the layered settings of the CLI and batch runner:
// defaults, then an optional YAML file, then CMJ_ environment variables.
package config

import (
	"runtime"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Workers bounds concurrent jump analyses in a batch.
	Workers int `koanf:"workers"`
	// Format of the metrics artifact: parquet or csv.
	Format string `koanf:"format"`

	// SampleInterval in seconds; 0 infers it from the time column.
	SampleInterval float64 `koanf:"sample_interval"`
	WeightWindow   int     `koanf:"weight_window"`
	UnweightOffset int     `koanf:"unweight_offset"`
	// TakeoffRule is force or acceleration.
	TakeoffRule string `koanf:"takeoff_rule"`

	Columns Columns `koanf:"columns"`

	// StorePath enables the SQLite jump history when set.
	StorePath string `koanf:"store_path"`
	// MetricsTextfile is written after each batch when set.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// Columns holds the source header labels.
type Columns struct {
	Time     string `koanf:"time"`
	Velocity string `koanf:"velocity"`
	Left     string `koanf:"left"`
	Right    string `koanf:"right"`
	Combined string `koanf:"combined"`
}

// New returns a Config populated with defaults.
func New() *Config {
	engine := cmjstats.DefaultConfig()
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Workers:        runtime.NumCPU(),
		Format:         "csv",
		SampleInterval: engine.SampleInterval,
		WeightWindow:   engine.WeightWindow,
		UnweightOffset: engine.Segment.UnweightOffset,
		TakeoffRule:    string(engine.Segment.Takeoff),
		Columns: Columns{
			Time:     engine.VelocityColumns.Time,
			Velocity: engine.VelocityColumns.Velocity,
			Left:     engine.ForceColumns.Left,
			Right:    engine.ForceColumns.Right,
			Combined: engine.ForceColumns.Combined,
		},
	}
}

// Engine converts the settings into an engine configuration.
func (c *Config) Engine() cmjstats.Config {
	cfg := cmjstats.DefaultConfig()
	cfg.VelocityColumns = cmjstats.VelocityColumns{Time: c.Columns.Time, Velocity: c.Columns.Velocity}
	cfg.ForceColumns = cmjstats.ForceColumns{
		Time:     c.Columns.Time,
		Left:     c.Columns.Left,
		Right:    c.Columns.Right,
		Combined: c.Columns.Combined,
	}
	cfg.SampleInterval = c.SampleInterval
	cfg.WeightWindow = c.WeightWindow
	cfg.Segment.UnweightOffset = c.UnweightOffset
	cfg.Segment.Takeoff = cmjstats.TakeoffRule(c.TakeoffRule)
	return cfg
}

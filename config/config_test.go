package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load("")

			convey.Convey("Then the engine defaults are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.Format, convey.ShouldEqual, "csv")
				convey.So(cfg.Workers, convey.ShouldBeGreaterThanOrEqualTo, 1)
				convey.So(cfg.Engine(), convey.ShouldResemble, cmjstats.DefaultConfig())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CMJ_WORKERS", "3")
			_ = os.Setenv("CMJ_SAMPLE_INTERVAL", "0.002")
			_ = os.Setenv("CMJ_TAKEOFF_RULE", "acceleration")
			_ = os.Setenv("CMJ_COLUMNS__COMBINED", "Total (N)")

			cfg, err := config.Load("")

			convey.Convey("Then env overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Workers, convey.ShouldEqual, 3)
				convey.So(cfg.SampleInterval, convey.ShouldEqual, 0.002)
				convey.So(cfg.Columns.Combined, convey.ShouldEqual, "Total (N)")

				engine := cfg.Engine()
				convey.So(engine.Segment.Takeoff, convey.ShouldEqual, cmjstats.TakeoffAcceleration)
				convey.So(engine.ForceColumns.Combined, convey.ShouldEqual, "Total (N)")
				convey.So(engine.SampleInterval, convey.ShouldEqual, 0.002)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
format: parquet
weight_window: 500
unweight_offset: 20
store_path: /tmp/jumps.db
columns:
  time: "t (s)"
`)
			_ = os.Setenv("CMJ_CONFIG", path)
			_ = os.Setenv("CMJ_WEIGHT_WINDOW", "800")

			cfg, err := config.Load("")

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Format, convey.ShouldEqual, "parquet")
				convey.So(cfg.WeightWindow, convey.ShouldEqual, 800)
				convey.So(cfg.UnweightOffset, convey.ShouldEqual, 20)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/tmp/jumps.db")
				convey.So(cfg.Columns.Time, convey.ShouldEqual, "t (s)")
				convey.So(cfg.Columns.Velocity, convey.ShouldEqual, "Velocity (M/s)")

				engine := cfg.Engine()
				convey.So(engine.VelocityColumns.Time, convey.ShouldEqual, "t (s)")
				convey.So(engine.ForceColumns.Time, convey.ShouldEqual, "t (s)")
			})
		})

		convey.Convey("When the explicit path does not exist", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When values are out of range", func() {
			cases := map[string]string{
				"CMJ_WORKERS":         "0",
				"CMJ_FORMAT":          "xlsx",
				"CMJ_SAMPLE_INTERVAL": "0.02",
				"CMJ_TAKEOFF_RULE":    "jerk",
				"CMJ_COLUMNS__LEFT":   " ",
			}
			for key, value := range cases {
				clearConfigEnvVars()
				_ = os.Setenv(key, value)
				_, err := config.Load("")
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmj.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"CMJ_CONFIG",
		"CMJ_LOG_LEVEL",
		"CMJ_LOG_FORMAT",
		"CMJ_WORKERS",
		"CMJ_FORMAT",
		"CMJ_SAMPLE_INTERVAL",
		"CMJ_WEIGHT_WINDOW",
		"CMJ_UNWEIGHT_OFFSET",
		"CMJ_TAKEOFF_RULE",
		"CMJ_STORE_PATH",
		"CMJ_METRICS_TEXTFILE",
		"CMJ_COLUMNS__TIME",
		"CMJ_COLUMNS__VELOCITY",
		"CMJ_COLUMNS__LEFT",
		"CMJ_COLUMNS__RIGHT",
		"CMJ_COLUMNS__COMBINED",
	} {
		_ = os.Unsetenv(key)
	}
}

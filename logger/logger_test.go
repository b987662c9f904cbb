package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	convey.Convey("Given a text logger on a buffer", t, func() {
		ctx := context.Background()
		var buf bytes.Buffer
		level := new(slog.LevelVar)
		log, err := New(&buf, "text", level)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When logging with fields", func() {
			log.Info(ctx, "jump analyzed", String("jump", "Jane_Doe-01_02_2024.csv"), Float64("v_peak_prop", 2.4))

			convey.Convey("Then the record carries the fields and the call site", func() {
				out := buf.String()
				convey.So(out, convey.ShouldContainSubstring, "msg=\"jump analyzed\"")
				convey.So(out, convey.ShouldContainSubstring, "jump=Jane_Doe-01_02_2024.csv")
				convey.So(out, convey.ShouldContainSubstring, "v_peak_prop=2.4")
				convey.So(out, convey.ShouldContainSubstring, "logger_test.go:")
			})
		})

		convey.Convey("When debug is below the level", func() {
			log.Debug(ctx, "hidden")
			convey.So(buf.Len(), convey.ShouldEqual, 0)

			level.Set(slog.LevelDebug)
			log.Debug(ctx, "shown")
			convey.So(buf.String(), convey.ShouldContainSubstring, "shown")
		})

		convey.Convey("When using a named logger with preset fields", func() {
			log.Named("pipeline").With(String("run_id", "r1")).Warn(ctx, "pair failed", Error(errors.New("boom")))

			convey.Convey("Then the group prefixes the fields", func() {
				out := buf.String()
				convey.So(out, convey.ShouldContainSubstring, "pipeline.run_id=r1")
				convey.So(out, convey.ShouldContainSubstring, "pipeline.error=boom")
				convey.So(out, convey.ShouldContainSubstring, "level=WARN")
			})
		})
	})
}

func TestJSONLogger(t *testing.T) {
	convey.Convey("Given a json logger", t, func() {
		var buf bytes.Buffer
		log, err := New(&buf, "JSON", nil)
		convey.So(err, convey.ShouldBeNil)

		log.Error(context.Background(), "failed", Int("pairs", 3))
		convey.So(strings.HasPrefix(buf.String(), "{"), convey.ShouldBeTrue)
		convey.So(buf.String(), convey.ShouldContainSubstring, `"pairs":3`)
	})

	convey.Convey("Given an unknown format", t, func() {
		_, err := New(&bytes.Buffer{}, "xml", nil)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestGlobalLogger(t *testing.T) {
	convey.Convey("Given the global logger", t, func() {
		convey.So(Init("text"), convey.ShouldBeNil)
		convey.So(Get(), convey.ShouldNotBeNil)
		convey.So(Named("test"), convey.ShouldNotBeNil)

		convey.Convey("Then levels parse case-insensitively", func() {
			convey.So(SetLevelString("DEBUG"), convey.ShouldBeNil)
			convey.So(levelVar.Level(), convey.ShouldEqual, slog.LevelDebug)
			convey.So(SetLevelString("warning"), convey.ShouldBeNil)
			convey.So(levelVar.Level(), convey.ShouldEqual, slog.LevelWarn)
			convey.So(SetLevelString("verbose"), convey.ShouldNotBeNil)
			SetLevel(slog.LevelInfo)
		})
	})

	convey.Convey("Given a discarding logger", t, func() {
		convey.So(func() { Nop().Info(context.Background(), "nothing") }, convey.ShouldNotPanic)
	})
}

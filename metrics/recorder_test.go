package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder on a private registry", t, func() {
		r := NewRecorder()

		Convey("When jumps succeed and fail", func() {
			r.ObserveJump(20*time.Millisecond, 2.4)
			r.ObserveJump(30*time.Millisecond, 2.1)
			r.ObserveFailure("segmentation_incomplete", 5*time.Millisecond)
			r.ObserveFailure("", time.Millisecond)

			Convey("Then counters reflect them", func() {
				So(testutil.ToFloat64(r.jumpsAnalyzed), ShouldEqual, 2.0)
				So(testutil.ToFloat64(r.jumpFailures.WithLabelValues("segmentation_incomplete")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(r.jumpFailures.WithLabelValues("other")), ShouldEqual, 1.0)
				So(testutil.CollectAndCount(r.analysisDuration), ShouldEqual, 1)
			})
		})

		Convey("When a batch completes", func() {
			r.ObserveBatch(12, 3*time.Second)

			Convey("Then the batch gauges are set", func() {
				So(testutil.ToFloat64(r.batchRuns), ShouldEqual, 1.0)
				So(testutil.ToFloat64(r.lastBatchPairs), ShouldEqual, 12.0)
				So(testutil.ToFloat64(r.lastBatchSeconds), ShouldEqual, 3.0)
			})
		})

		Convey("When writing a textfile", func() {
			r.ObserveJump(time.Millisecond, 2.0)
			path := filepath.Join(t.TempDir(), "cmj.prom")
			So(r.WriteTextfile(path), ShouldBeNil)

			Convey("Then it holds the exposition text", func() {
				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "cmj_jumps_analyzed_total 1")
			})
		})
	})
}

func TestRecorderOptions(t *testing.T) {
	Convey("Given custom options", t, func() {
		registry := prometheus.NewRegistry()
		r := NewRecorder(WithNamespace("lab"), WithRegistry(registry), WithHistogramBuckets([]float64{0.1, 1}))
		r.ObserveJump(time.Millisecond, 2.0)

		Convey("Then metrics use the namespace and the registry", func() {
			So(r.Registry(), ShouldEqual, registry)
			count, err := testutil.GatherAndCount(registry, "lab_jumps_analyzed_total")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 1)
		})
	})

	Convey("Given a nil recorder", t, func() {
		var r *Recorder
		So(func() {
			r.ObserveJump(time.Millisecond, 1)
			r.ObserveFailure("other", time.Millisecond)
			r.ObserveBatch(1, time.Second)
		}, ShouldNotPanic)
		So(r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")), ShouldBeNil)
	})
}

// Package metrics exposes Prometheus instrumentation for batch analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the buckets of the duration histogram, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on and gathered from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder counts analyzed jumps and failures. A nil *Recorder is a no-op.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	jumpsAnalyzed    prometheus.Counter
	jumpFailures     *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	peakVelocity     prometheus.Histogram
	batchRuns        prometheus.Counter
	lastBatchPairs   prometheus.Gauge
	lastBatchSeconds prometheus.Gauge
}

// NewRecorder creates a Recorder on a private registry unless WithRegistry is given.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "cmj",
		buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.jumpsAnalyzed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "jumps_analyzed_total",
		Help:      "Total number of jumps analyzed successfully",
	})
	r.jumpFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "jump_failures_total",
		Help:      "Total number of jumps that failed analysis, by error kind",
	}, []string{"kind"})
	r.analysisDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time spent analyzing one velocity/force pair",
		Buckets:   r.buckets,
	})
	r.peakVelocity = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "peak_propulsive_velocity_mps",
		Help:      "Distribution of peak propulsive velocity across analyzed jumps",
		Buckets:   prometheus.LinearBuckets(1.0, 0.25, 10),
	})
	r.batchRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "batch_runs_total",
		Help:      "Total number of batch runs",
	})
	r.lastBatchPairs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_batch_pairs",
		Help:      "Number of pairs in the most recent batch",
	})
	r.lastBatchSeconds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "last_batch_duration_seconds",
		Help:      "Wall time of the most recent batch",
	})
	return r
}

// ObserveJump records a successful analysis.
func (r *Recorder) ObserveJump(d time.Duration, peakVelocity float64) {
	if r == nil {
		return
	}
	r.jumpsAnalyzed.Inc()
	r.analysisDuration.Observe(d.Seconds())
	r.peakVelocity.Observe(peakVelocity)
}

// ObserveFailure records a failed analysis under its error kind.
func (r *Recorder) ObserveFailure(kind string, d time.Duration) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "other"
	}
	r.jumpFailures.WithLabelValues(kind).Inc()
	r.analysisDuration.Observe(d.Seconds())
}

// ObserveBatch records one completed batch.
func (r *Recorder) ObserveBatch(pairs int, d time.Duration) {
	if r == nil {
		return
	}
	r.batchRuns.Inc()
	r.lastBatchPairs.Set(float64(pairs))
	r.lastBatchSeconds.Set(d.Seconds())
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

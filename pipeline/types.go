package pipeline

import (
	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/inbox"
	"github.com/lucasjlepore/cmj-analyzer/logger"
	"github.com/lucasjlepore/cmj-analyzer/metrics"
	"github.com/lucasjlepore/cmj-analyzer/store"
)

// Artifact file names.
const (
	MetricsCSVName     = "metrics.csv"
	MetricsParquetName = "metrics.parquet"
	ManifestName       = "run.json"
	SummaryName        = "summary.txt"
)

// Options configures a batch run over an input directory.
type Options struct {
	// InputDir holds force/ and velocity/ subdirectories.
	InputDir  string
	OutDir    string
	Format    string // parquet|csv
	Overwrite bool
	// Workers bounds concurrent analyses; 0 means one.
	Workers int
	// Engine is the analysis configuration; the zero value means
	// cmjstats.DefaultConfig().
	Engine cmjstats.Config

	// Optional collaborators.
	Store    *store.Store
	Logger   logger.Logger
	Recorder *metrics.Recorder
}

// Result returns generated output paths and run counts.
type Result struct {
	RunID        string          `json:"run_id"`
	OutputDir    string          `json:"output_dir"`
	MetricsPath  string          `json:"metrics_path"`
	ManifestPath string          `json:"manifest_path"`
	SummaryPath  string          `json:"summary_path"`
	Analyzed     int             `json:"analyzed"`
	Failures     []Failure       `json:"failures,omitempty"`
	Skipped      []inbox.Skipped `json:"skipped,omitempty"`
}

// BytesPair is one in-memory jump: the export name plus both sources.
type BytesPair struct {
	Name     string
	Velocity []byte
	Force    []byte
}

// BytesOptions configures RunBytes.
type BytesOptions struct {
	Pairs   []BytesPair
	Format  string // parquet|csv
	Workers int
	Engine  cmjstats.Config
}

// BytesResult holds generated artifacts keyed by file name.
type BytesResult struct {
	RunID    string            `json:"run_id"`
	Files    map[string][]byte `json:"-"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Failure is one pair that could not be analyzed.
type Failure struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Manifest is the run.json artifact.
type Manifest struct {
	RunID       string          `json:"run_id"`
	GeneratedAt string          `json:"generated_at"`
	InputDir    string          `json:"input_dir,omitempty"`
	Format      string          `json:"format"`
	Pairs       int             `json:"pairs"`
	Analyzed    int             `json:"analyzed"`
	Settings    Settings        `json:"settings"`
	Jumps       []ManifestJump  `json:"jumps"`
	Failures    []Failure       `json:"failures"`
	Skipped     []inbox.Skipped `json:"skipped,omitempty"`
}

// Settings records the engine configuration a run used.
type Settings struct {
	SampleInterval float64                  `json:"sample_interval_s"`
	WeightWindow   int                      `json:"weight_window"`
	Segment        cmjstats.SegmentOptions  `json:"segment"`
	Velocity       cmjstats.VelocityColumns `json:"velocity_columns"`
	Force          cmjstats.ForceColumns    `json:"force_columns"`
}

// ManifestJump summarizes one analyzed jump in run.json.
type ManifestJump struct {
	Key    string           `json:"key"`
	Result *cmjstats.Result `json:"result"`
}

// JumpRow is one line of the metrics artifact.
type JumpRow struct {
	Key            string
	FirstName      string
	LastName       string
	JumpDate       string
	TakeoffRule    string
	SampleInterval float64
	WeightMean     float64
	WeightStd      float64
	Metrics        cmjstats.JumpMetrics
}

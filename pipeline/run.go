// Package pipeline runs the jump engine over a directory of force/velocity
// export pairs and writes the batch artifacts.
package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/hawkin"
	"github.com/lucasjlepore/cmj-analyzer/inbox"
	"github.com/lucasjlepore/cmj-analyzer/logger"
	"github.com/lucasjlepore/cmj-analyzer/metrics"
	"github.com/lucasjlepore/cmj-analyzer/store"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"golang.org/x/sync/errgroup"
)

// Run analyzes every complete pair under opts.InputDir and writes the
// metrics table, run.json and summary.txt into opts.OutDir. A pair that
// fails analysis is recorded in the result and does not stop the batch.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.InputDir) == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.Engine == (cmjstats.Config{}) {
		opts.Engine = cmjstats.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}

	started := time.Now()
	runID := uuid.NewString()
	log = log.With(logger.String("run_id", runID))

	pairs, skipped, err := inbox.Scan(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	for _, s := range skipped {
		log.Warn(ctx, "pipeline: skipped file", logger.String("path", s.Path), logger.String("reason", s.Reason))
	}
	log.Info(ctx, "pipeline: analyzing pairs", logger.Int("pairs", len(pairs)), logger.Int("workers", opts.Workers))

	jobs := make([]job, 0, len(pairs))
	for _, p := range pairs {
		jobs = append(jobs, job{
			name:     p.Name,
			velocity: openFile(p.VelocityPath),
			force:    openFile(p.ForcePath),
		})
	}
	outcomes, err := analyzeAll(ctx, jobs, opts.Workers, opts.Engine, opts.Recorder)
	if err != nil {
		return nil, err
	}
	for _, o := range outcomes {
		if o.err != nil {
			log.Warn(ctx, "pipeline: jump failed",
				logger.String("jump", o.name.Key),
				logger.String("kind", cmjstats.ErrorKind(o.err)),
				logger.Duration("elapsed", o.elapsed),
				logger.Error(o.err),
			)
		}
	}

	set := buildArtifacts(runID, started, format, opts.InputDir, opts.Engine, outcomes, skipped)

	result := &Result{
		RunID:        runID,
		OutputDir:    opts.OutDir,
		MetricsPath:  filepath.Join(opts.OutDir, metricsName(format)),
		ManifestPath: filepath.Join(opts.OutDir, ManifestName),
		SummaryPath:  filepath.Join(opts.OutDir, SummaryName),
		Analyzed:     len(set.rows),
		Failures:     set.manifest.Failures,
		Skipped:      skipped,
	}

	switch format {
	case "csv":
		err = writeMetricsCSVFile(result.MetricsPath, set.rows)
	case "parquet":
		err = writeMetricsParquetFile(result.MetricsPath, set.rows)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", filepath.Base(result.MetricsPath), err)
	}
	if err := writeJSON(result.ManifestPath, set.manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestName, err)
	}
	if err := os.WriteFile(result.SummaryPath, []byte(set.summary), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", SummaryName, err)
	}

	if opts.Store != nil {
		if err := persist(ctx, opts.Store, runID, started, opts.InputDir, outcomes); err != nil {
			return nil, fmt.Errorf("store run: %w", err)
		}
	}

	elapsed := time.Since(started)
	opts.Recorder.ObserveBatch(len(pairs), elapsed)
	log.Info(ctx, "pipeline: run complete",
		logger.Int("analyzed", result.Analyzed),
		logger.Int("failed", len(result.Failures)),
		logger.Int("skipped", len(skipped)),
		logger.Duration("elapsed", elapsed),
	)
	return result, nil
}

// RunBytes analyzes in-memory pairs and returns the artifacts keyed by file
// name. Pairs whose names do not parse are analyzed under their raw name and
// reported in Warnings.
func RunBytes(ctx context.Context, opts BytesOptions) (*BytesResult, error) {
	if len(opts.Pairs) == 0 {
		return nil, fmt.Errorf("at least one pair is required")
	}
	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	if opts.Engine == (cmjstats.Config{}) {
		opts.Engine = cmjstats.DefaultConfig()
	}

	started := time.Now()
	runID := uuid.NewString()
	var warnings []string

	jobs := make([]job, 0, len(opts.Pairs))
	for _, p := range opts.Pairs {
		name, err := hawkin.Parse(p.Name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", p.Name, err))
			name = hawkin.Name{Key: filepath.Base(p.Name)}
		}
		jobs = append(jobs, job{
			name:     name,
			velocity: openBytes(p.Velocity),
			force:    openBytes(p.Force),
		})
	}
	outcomes, err := analyzeAll(ctx, jobs, opts.Workers, opts.Engine, nil)
	if err != nil {
		return nil, err
	}
	set := buildArtifacts(runID, started, format, "", opts.Engine, outcomes, nil)

	var metricsBuf bytes.Buffer
	switch format {
	case "csv":
		err = writeMetricsCSV(&metricsBuf, set.rows)
	case "parquet":
		var data []byte
		data, err = marshalMetricsParquet(set.rows)
		metricsBuf.Write(data)
	}
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", metricsName(format), err)
	}
	manifest, err := json.MarshalIndent(set.manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestName, err)
	}

	for _, f := range set.manifest.Failures {
		warnings = append(warnings, fmt.Sprintf("%s: %s", f.Key, f.Error))
	}
	return &BytesResult{
		RunID: runID,
		Files: map[string][]byte{
			metricsName(format): metricsBuf.Bytes(),
			ManifestName:        append(manifest, '\n'),
			SummaryName:         []byte(set.summary),
		},
		Warnings: warnings,
	}, nil
}

type job struct {
	name     hawkin.Name
	velocity func() (io.ReadCloser, error)
	force    func() (io.ReadCloser, error)
}

type outcome struct {
	name    hawkin.Name
	result  *cmjstats.Result
	err     error
	elapsed time.Duration
}

// analyzeAll runs the engine over jobs with at most workers in flight.
// Outcomes keep the order of jobs.
func analyzeAll(ctx context.Context, jobs []job, workers int, cfg cmjstats.Config, rec *metrics.Recorder) ([]outcome, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := analyzeJob(j, cfg)
			elapsed := time.Since(start)
			out[i] = outcome{name: j.name, result: res, err: err, elapsed: elapsed}
			if err != nil {
				rec.ObserveFailure(cmjstats.ErrorKind(err), elapsed)
			} else {
				rec.ObserveJump(elapsed, res.Metrics.VPeakProp)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func analyzeJob(j job, cfg cmjstats.Config) (*cmjstats.Result, error) {
	vel, err := j.velocity()
	if err != nil {
		return nil, fmt.Errorf("open velocity: %w", err)
	}
	defer vel.Close()
	frc, err := j.force()
	if err != nil {
		return nil, fmt.Errorf("open force: %w", err)
	}
	defer frc.Close()
	return cmjstats.AnalyzeCSV(vel, frc, cfg)
}

func openFile(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return os.Open(path) }
}

func openBytes(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil }
}

type artifactSet struct {
	rows     []JumpRow
	manifest Manifest
	summary  string
}

func buildArtifacts(runID string, started time.Time, format, inputDir string, cfg cmjstats.Config, outcomes []outcome, skipped []inbox.Skipped) artifactSet {
	set := artifactSet{
		manifest: Manifest{
			RunID:       runID,
			GeneratedAt: started.UTC().Format(time.RFC3339),
			InputDir:    inputDir,
			Format:      format,
			Pairs:       len(outcomes),
			Settings: Settings{
				SampleInterval: cfg.SampleInterval,
				WeightWindow:   cfg.WeightWindow,
				Segment:        cfg.Segment,
				Velocity:       cfg.VelocityColumns,
				Force:          cfg.ForceColumns,
			},
			Jumps:    []ManifestJump{},
			Failures: []Failure{},
			Skipped:  skipped,
		},
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Run %s | %s | %d pairs\n", runID, set.manifest.GeneratedAt, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			set.manifest.Failures = append(set.manifest.Failures, Failure{
				Key:   o.name.Key,
				Kind:  cmjstats.ErrorKind(o.err),
				Error: o.err.Error(),
			})
			continue
		}
		set.rows = append(set.rows, newJumpRow(o.name, o.result))
		set.manifest.Jumps = append(set.manifest.Jumps, ManifestJump{Key: o.name.Key, Result: o.result})
		summary.WriteString("\n")
		summary.WriteString(cmjstats.BuildJumpNotes(jumpTitle(o.name), o.result))
	}
	set.manifest.Analyzed = len(set.rows)

	if len(set.manifest.Failures) > 0 {
		summary.WriteString("\nFailures:\n")
		for _, f := range set.manifest.Failures {
			fmt.Fprintf(&summary, "- %s [%s]: %s\n", f.Key, f.Kind, f.Error)
		}
	}
	set.summary = summary.String()
	return set
}

func newJumpRow(name hawkin.Name, res *cmjstats.Result) JumpRow {
	row := JumpRow{
		Key:            name.Key,
		FirstName:      name.First,
		LastName:       name.Last,
		TakeoffRule:    string(res.Takeoff),
		SampleInterval: res.SampleInterval,
		WeightMean:     res.Weight.Mean,
		WeightStd:      res.Weight.Std,
		Metrics:        res.Metrics,
	}
	if !name.Date.IsZero() {
		row.JumpDate = name.Date.Format("2006-01-02")
	}
	return row
}

func jumpTitle(name hawkin.Name) string {
	if athlete := name.Athlete(); athlete != "" && !name.Date.IsZero() {
		return fmt.Sprintf("%s %s", athlete, name.Date.Format("2006-01-02"))
	}
	return name.Key
}

func persist(ctx context.Context, s *store.Store, runID string, started time.Time, inputDir string, outcomes []outcome) error {
	run := store.Run{ID: runID, StartedAt: started, InputDir: inputDir, Pairs: len(outcomes)}
	var (
		jumps    []store.Jump
		failures []store.Failure
	)
	for _, o := range outcomes {
		if o.err != nil {
			failures = append(failures, store.Failure{
				RunID:   runID,
				Key:     o.name.Key,
				Kind:    cmjstats.ErrorKind(o.err),
				Message: o.err.Error(),
			})
			continue
		}
		jumps = append(jumps, store.Jump{
			RunID:          runID,
			Name:           o.name,
			Takeoff:        o.result.Takeoff,
			SampleInterval: o.result.SampleInterval,
			Weight:         o.result.Weight,
			Metrics:        o.result.Metrics,
			AnalyzedAt:     started,
		})
	}
	run.Failures = len(failures)
	return s.InsertRun(ctx, run, jumps, failures)
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "parquet" && format != "csv" {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func metricsName(format string) string {
	if format == "parquet" {
		return MetricsParquetName
	}
	return MetricsCSVName
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// MetricsHeader is the column order of metrics.csv.
func MetricsHeader() []string {
	header := []string{
		"jump_key", "first_name", "last_name", "jump_date", "takeoff_rule",
		"sample_interval_s", "weight_mean_n", "weight_std_n",
	}
	return append(header, cmjstats.MetricNames...)
}

func writeMetricsCSVFile(path string, rows []JumpRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeMetricsCSV(f, rows)
}

func writeMetricsCSV(out io.Writer, rows []JumpRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(MetricsHeader()); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Key,
			r.FirstName,
			r.LastName,
			r.JumpDate,
			r.TakeoffRule,
			formatFloat(r.SampleInterval),
			formatFloat(r.WeightMean),
			formatFloat(r.WeightStd),
		}
		for _, v := range r.Metrics.Values() {
			record = append(record, formatFloat(v))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeMetricsParquetFile(path string, rows []JumpRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeMetricsParquet(fw, rows); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func marshalMetricsParquet(rows []JumpRow) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeMetricsParquet(fw, rows); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// formatFloat leaves non-finite values empty.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Package main provides the CLI entrypoint for cmjstats.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/config"
	"github.com/lucasjlepore/cmj-analyzer/fitsource"
	"github.com/lucasjlepore/cmj-analyzer/hawkin"
	"github.com/lucasjlepore/cmj-analyzer/inbox"
	"github.com/lucasjlepore/cmj-analyzer/logger"
	"github.com/lucasjlepore/cmj-analyzer/metrics"
	"github.com/lucasjlepore/cmj-analyzer/pipeline"
	"github.com/lucasjlepore/cmj-analyzer/store"
)

var (
	configPath string
	cfg        *config.Config

	analyzeVelocity   string
	analyzeForce      string
	analyzeJSON       bool
	analyzeSampleRate float64

	batchIn        string
	batchOut       string
	batchFormat    string
	batchWorkers   int
	batchOverwrite bool

	watchIn     string
	watchOut    string
	watchSettle time.Duration
	watchSkip   bool

	historyFirst string
	historyLast  string
	historySince string
	historyLimit int
	historyJSON  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "cmjstats",
		Short:             "Countermovement jump metrics from force-plate exports",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: loadConfig,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $CMJ_CONFIG)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func loadConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(loaded.LogFormat); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	if err := logger.SetLevelString(loaded.LogLevel); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one velocity/force pair",
		Args:  cobra.NoArgs,
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().StringVar(&analyzeVelocity, "velocity", "", "velocity export (.csv, or .fit with vertical speed)")
	cmd.Flags().StringVar(&analyzeForce, "force", "", "force export (.csv)")
	cmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	cmd.Flags().Float64Var(&analyzeSampleRate, "fit-sample-rate", 0, "sample rate in Hz for FIT records (0 uses timestamps)")
	_ = cmd.MarkFlagRequired("velocity")
	_ = cmd.MarkFlagRequired("force")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	engine := cfg.Engine()
	res, err := analyzeFiles(analyzeVelocity, analyzeForce, engine)
	if err != nil {
		return fmt.Errorf("analyze failed [%s]: %w", cmjstats.ErrorKind(err), err)
	}
	if analyzeJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), cmjstats.BuildJumpNotes(displayName(analyzeForce), res))
	return err
}

func analyzeFiles(velocityPath, forcePath string, engine cmjstats.Config) (*cmjstats.Result, error) {
	vf, err := os.Open(velocityPath)
	if err != nil {
		return nil, err
	}
	defer vf.Close()
	ff, err := os.Open(forcePath)
	if err != nil {
		return nil, err
	}
	defer ff.Close()

	if !strings.EqualFold(filepath.Ext(velocityPath), ".fit") {
		return cmjstats.AnalyzeCSV(vf, ff, engine)
	}
	vel, err := fitsource.LoadVelocity(vf, fitsource.Options{
		Columns:    engine.VelocityColumns,
		SampleRate: analyzeSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("load velocity: %w", err)
	}
	frc, err := cmjstats.LoadForce(ff, engine.ForceColumns)
	if err != nil {
		return nil, fmt.Errorf("load force: %w", err)
	}
	return cmjstats.Analyze(vel, frc, engine)
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every pair in an input directory",
		Args:  cobra.NoArgs,
		RunE:  runBatchCmd,
	}
	cmd.Flags().StringVar(&batchIn, "in", "", "input directory with force/ and velocity/")
	cmd.Flags().StringVar(&batchOut, "out", "", "output directory")
	cmd.Flags().StringVar(&batchFormat, "format", "", "metrics format: csv|parquet (default from config)")
	cmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent analyses (default from config)")
	cmd.Flags().BoolVar(&batchOverwrite, "overwrite", false, "allow writing into a non-empty output directory")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runBatchCmd(cmd *cobra.Command, _ []string) error {
	applyStringFlag(cmd, "format", &cfg.Format, batchFormat)
	applyIntFlag(cmd, "workers", &cfg.Workers, batchWorkers)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	rec := metrics.NewRecorder()

	result, err := pipeline.Run(ctx, pipeline.Options{
		InputDir:  batchIn,
		OutDir:    batchOut,
		Format:    cfg.Format,
		Overwrite: batchOverwrite,
		Workers:   cfg.Workers,
		Engine:    cfg.Engine(),
		Store:     st,
		Logger:    logger.Named("batch"),
		Recorder:  rec,
	})
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	if err := writeTextfile(rec); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch complete\n")
	fmt.Fprintf(out, "Run id:       %s\n", result.RunID)
	fmt.Fprintf(out, "Output dir:   %s\n", result.OutputDir)
	fmt.Fprintf(out, "metrics:      %s\n", result.MetricsPath)
	fmt.Fprintf(out, "run.json:     %s\n", result.ManifestPath)
	fmt.Fprintf(out, "summary.txt:  %s\n", result.SummaryPath)
	fmt.Fprintf(out, "analyzed:     %d\n", result.Analyzed)
	for _, f := range result.Failures {
		fmt.Fprintf(out, "failed:       %s [%s] %s\n", f.Key, f.Kind, f.Error)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(out, "skipped:      %s (%s)\n", s.Path, s.Reason)
	}
	return nil
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyze pairs as they arrive in an input directory",
		Args:  cobra.NoArgs,
		RunE:  runWatchCmd,
	}
	cmd.Flags().StringVar(&watchIn, "in", "", "input directory with force/ and velocity/")
	cmd.Flags().StringVar(&watchOut, "out", "", "directory for per-jump result JSON (optional)")
	cmd.Flags().DurationVar(&watchSettle, "settle", inbox.DefaultSettle, "quiet time before a pair is analyzed")
	cmd.Flags().BoolVar(&watchSkip, "skip-existing", false, "ignore pairs present at startup")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	if watchOut != "" {
		if err := os.MkdirAll(watchOut, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	log := logger.Named("watch")
	rec := metrics.NewRecorder()
	engine := cfg.Engine()
	out := cmd.OutOrStdout()

	onPair := func(p inbox.Pair) {
		start := time.Now()
		res, err := analyzeFiles(p.VelocityPath, p.ForcePath, engine)
		elapsed := time.Since(start)
		if err != nil {
			rec.ObserveFailure(cmjstats.ErrorKind(err), elapsed)
			log.Error(ctx, "watch: analysis failed", logger.String("jump", p.Name.Key), logger.Error(err))
			return
		}
		rec.ObserveJump(elapsed, res.Metrics.VPeakProp)
		fmt.Fprintln(out, cmjstats.BuildJumpNotes(p.Name.Athlete()+" "+p.Name.Date.Format("2006-01-02"), res))

		if watchOut != "" {
			path := filepath.Join(watchOut, strings.TrimSuffix(p.Name.Key, filepath.Ext(p.Name.Key))+".json")
			if err := writeJSONFile(path, res); err != nil {
				log.Error(ctx, "watch: write result", logger.String("path", path), logger.Error(err))
			}
		}
		if st != nil {
			run := store.Run{ID: uuid.NewString(), StartedAt: start, InputDir: watchIn, Pairs: 1}
			jump := store.Jump{
				RunID:          run.ID,
				Name:           p.Name,
				Takeoff:        res.Takeoff,
				SampleInterval: res.SampleInterval,
				Weight:         res.Weight,
				Metrics:        res.Metrics,
				AnalyzedAt:     start,
			}
			if err := st.InsertRun(ctx, run, []store.Jump{jump}, nil); err != nil {
				log.Error(ctx, "watch: store jump", logger.String("jump", p.Name.Key), logger.Error(err))
			}
		}
		if err := writeTextfile(rec); err != nil {
			log.Warn(ctx, "watch: metrics textfile", logger.Error(err))
		}
	}

	return inbox.Watch(ctx, watchIn, inbox.WatchOptions{
		Settle:       watchSettle,
		Logger:       log,
		SkipExisting: watchSkip,
	}, onPair)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored jumps",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyFirst, "first", "", "athlete first name")
	cmd.Flags().StringVar(&historyLast, "last", "", "athlete last name")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLimit, "limit", 0, "limit to N jumps")
	cmd.Flags().BoolVar(&historyJSON, "json", false, "print jumps as JSON")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if cfg.StorePath == "" {
		return fmt.Errorf("store_path is not configured")
	}
	filter := store.Filter{First: historyFirst, Last: historyLast, Limit: historyLimit}
	if historySince != "" {
		parsed, err := time.Parse("2006-01-02", historySince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = parsed
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	jumps, err := st.ListJumps(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list jumps: %w", err)
	}
	if historyJSON {
		return printJSON(cmd.OutOrStdout(), jumps)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATHLETE\tDATE\tTAKEOFF\tV PEAK\tT TO PEAK\tV AVG 100\tA PEAK POS\tRUN")
	for _, j := range jumps {
		m := j.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.2f\t%s\n",
			j.Name.Athlete(),
			j.Name.Date.Format("2006-01-02"),
			j.Takeoff,
			m.VPeakProp,
			m.TToVPeakProp,
			m.VAvg100Prop,
			m.APeakPos,
			shortID(j.RunID),
		)
	}
	return tw.Flush()
}

// openStore returns a nil store when no store_path is configured.
func openStore() (*store.Store, func(), error) {
	if cfg.StorePath == "" {
		return nil, func() {}, nil
	}
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func writeTextfile(rec *metrics.Recorder) error {
	if cfg.MetricsTextfile == "" {
		return nil
	}
	if err := rec.WriteTextfile(cfg.MetricsTextfile); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func displayName(path string) string {
	name, err := hawkin.Parse(path)
	if err != nil {
		return filepath.Base(path)
	}
	return name.Athlete() + " " + name.Date.Format("2006-01-02")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return printJSON(f, v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		return
	}
}

package cmjstats

import (
	"fmt"
	"io"
	"math"
)

// Config controls column labels and segmentation thresholds for one analysis.
type Config struct {
	VelocityColumns VelocityColumns
	ForceColumns    ForceColumns

	// SampleInterval is the nominal sampling interval in seconds. Zero
	// infers it from the merged time column.
	SampleInterval float64
	// WeightWindow is the number of leading samples used for the system weight.
	WeightWindow int
	Segment      SegmentOptions
}

// DefaultConfig returns the configuration for 1 kHz vendor exports.
func DefaultConfig() Config {
	return Config{
		VelocityColumns: DefaultVelocityColumns(),
		ForceColumns:    DefaultForceColumns(),
		SampleInterval:  DefaultSampleInterval,
		WeightWindow:    DefaultWeightWindow,
		Segment:         DefaultSegmentOptions(),
	}
}

// Result contains the metrics of one jump and the intermediate values they
// were derived from.
type Result struct {
	Metrics        JumpMetrics     `json:"metrics"`
	Phases         Phases          `json:"phases"`
	Boundaries     []PhaseBoundary `json:"boundaries"`
	Weight         SystemWeight    `json:"system_weight"`
	Upswing        Window          `json:"upswing"`
	SampleInterval float64         `json:"sample_interval_s"`
	Takeoff        TakeoffRule     `json:"takeoff_rule"`
	MergedRows     int             `json:"merged_rows"`
}

// AnalyzeCSV loads the velocity and force CSV sources and analyzes them.
func AnalyzeCSV(velocity, force io.Reader, cfg Config) (*Result, error) {
	vel, err := LoadVelocity(velocity, cfg.VelocityColumns)
	if err != nil {
		return nil, fmt.Errorf("load velocity: %w", err)
	}
	frc, err := LoadForce(force, cfg.ForceColumns)
	if err != nil {
		return nil, fmt.Errorf("load force: %w", err)
	}
	return Analyze(vel, frc, cfg)
}

// Analyze runs the full engine over one velocity/force pair. It returns
// either a complete Result or an error; partial metrics are never returned.
func Analyze(vel, force *Attribute, cfg Config) (*Result, error) {
	upswing, err := ExtractPositiveVelocityWindow(vel)
	if err != nil {
		return nil, err
	}

	rec, err := Merge(vel, force)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if rec.Len() == 0 {
		return nil, fmt.Errorf("merge: no shared time values: %w", ErrEmptyInput)
	}

	interval := cfg.SampleInterval
	if interval == 0 {
		interval, err = InferSampleInterval(rec.Time)
		if err != nil {
			return nil, err
		}
	}
	if err := checkInterval(interval); err != nil {
		return nil, err
	}

	weight, err := EstimateSystemWeight(rec, cfg.WeightWindow)
	if err != nil {
		return nil, err
	}

	segOpts := cfg.Segment
	segOpts.SampleInterval = interval
	if segOpts.Takeoff == "" {
		segOpts.Takeoff = TakeoffForce
	}
	phases, err := Segment(rec, weight, segOpts)
	if err != nil {
		return nil, err
	}

	metrics, err := ComputeMetrics(rec, phases, interval)
	if err != nil {
		return nil, err
	}

	return &Result{
		Metrics:        metrics,
		Phases:         phases,
		Boundaries:     phases.Boundaries(),
		Weight:         weight,
		Upswing:        upswing,
		SampleInterval: interval,
		Takeoff:        segOpts.Takeoff,
		MergedRows:     rec.Len(),
	}, nil
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	total := 0.0
	count := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		total += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return total / float64(count)
}

func maxValue(values []float64) float64 {
	i := argMax(values)
	if i < 0 {
		return math.NaN()
	}
	return values[i]
}

func minValue(values []float64) float64 {
	lowest := math.NaN()
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		if math.IsNaN(lowest) || v < lowest {
			lowest = v
		}
	}
	return lowest
}

// argMax returns the position of the first largest finite value, or -1.
func argMax(values []float64) int {
	best := -1
	for i, v := range values {
		if !isFinite(v) {
			continue
		}
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

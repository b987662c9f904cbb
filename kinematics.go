package cmjstats

import (
	"fmt"
	"math"
	"sort"
)

const (
	// DefaultSampleInterval is the nominal 1 kHz force-plate sampling interval in seconds.
	DefaultSampleInterval = 0.001
	// MaxSampleInterval is the coarsest interval the first-sample extrapolation accepts.
	MaxSampleInterval = 0.01

	leadDifferences = 3
)

func checkInterval(interval float64) error {
	if !isFinite(interval) || interval <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidInterval, interval)
	}
	if interval > MaxSampleInterval {
		return &SampleIntervalTooCoarseError{Interval: interval}
	}
	return nil
}

// Differentiate converts a velocity window into acceleration. Every sample
// but the first uses the backward difference; the first sample has no left
// neighbour inside the window and takes the mean of the next three
// differences (fewer if the window is shorter). v is not modified.
func Differentiate(v []float64, interval float64) ([]float64, error) {
	if err := checkInterval(interval); err != nil {
		return nil, err
	}
	switch len(v) {
	case 0:
		return nil, fmt.Errorf("differentiate: %w", ErrEmptyInput)
	case 1:
		return nil, fmt.Errorf("differentiate 1 sample: %w", ErrTooFewSamples)
	}

	acc := make([]float64, len(v))
	for i := 1; i < len(v); i++ {
		acc[i] = (v[i] - v[i-1]) / interval
	}
	lead := min(leadDifferences, len(v)-1)
	acc[0] = (v[lead] - v[0]) / float64(lead) / interval
	return acc, nil
}

// InferSampleInterval returns the median positive step of a time column.
func InferSampleInterval(t []float64) (float64, error) {
	steps := make([]float64, 0, len(t))
	for i := 1; i < len(t); i++ {
		d := t[i] - t[i-1]
		if d > 0 && isFinite(d) {
			steps = append(steps, d)
		}
	}
	if len(steps) == 0 {
		return 0, fmt.Errorf("infer sample interval: %w", ErrTooFewSamples)
	}
	sort.Float64s(steps)
	mid := len(steps) / 2
	if len(steps)%2 == 1 {
		return steps[mid], nil
	}
	return (steps[mid-1] + steps[mid]) / 2, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

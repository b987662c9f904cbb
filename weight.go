package cmjstats

import (
	"fmt"
	"math"
)

// DefaultWeightWindow is the number of leading samples treated as quiet stance.
const DefaultWeightWindow = 1000

// SystemWeight is the resting force baseline of the athlete.
type SystemWeight struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// EstimateSystemWeight computes the mean and sample standard deviation of
// combined force over the first window rows of rec, or all rows if fewer.
func EstimateSystemWeight(rec *MergedRecord, window int) (SystemWeight, error) {
	if window <= 0 {
		window = DefaultWeightWindow
	}
	n := min(window, rec.Len())
	if n == 0 {
		return SystemWeight{}, fmt.Errorf("system weight: %w", ErrEmptyInput)
	}
	lead := rec.Combined[:n]
	mean := average(lead)
	return SystemWeight{Mean: mean, Std: sampleStdDev(lead, mean)}, nil
}

func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

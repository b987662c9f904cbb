package cmjstats

import (
	"errors"
	"math"
	"testing"
)

func TestDifferentiateLinearRamp(t *testing.T) {
	const slope = 3.5
	v := make([]float64, 50)
	for i := range v {
		v[i] = slope * float64(i) * DefaultSampleInterval
	}
	orig := append([]float64(nil), v...)

	acc, err := Differentiate(v, DefaultSampleInterval)
	if err != nil {
		t.Fatalf("Differentiate error: %v", err)
	}
	if len(acc) != len(v) {
		t.Fatalf("expected %d values, got %d", len(v), len(acc))
	}
	for i, a := range acc {
		if math.Abs(a-slope) > 1e-9 {
			t.Fatalf("acc[%d] = %v, want %v", i, a, slope)
		}
	}
	for i := range v {
		if v[i] != orig[i] {
			t.Fatal("input velocity was modified")
		}
	}
}

func TestDifferentiateFirstSampleUsesLeadDifferences(t *testing.T) {
	v := []float64{0, 0.001, 0.003, 0.006, 0.1}
	acc, err := Differentiate(v, DefaultSampleInterval)
	if err != nil {
		t.Fatalf("Differentiate error: %v", err)
	}
	// Mean of the next three differences: (1 + 2 + 3) / 3 = 2 m/s².
	if math.Abs(acc[0]-2) > 1e-9 {
		t.Fatalf("acc[0] = %v, want 2", acc[0])
	}
	if math.Abs(acc[4]-94) > 1e-9 {
		t.Fatalf("acc[4] = %v, want 94", acc[4])
	}
}

func TestDifferentiateShortWindows(t *testing.T) {
	acc, err := Differentiate([]float64{1, 1.002}, DefaultSampleInterval)
	if err != nil {
		t.Fatalf("Differentiate error: %v", err)
	}
	if math.Abs(acc[0]-2) > 1e-9 || math.Abs(acc[1]-2) > 1e-9 {
		t.Fatalf("unexpected two-sample acceleration: %v", acc)
	}

	if _, err := Differentiate([]float64{1}, DefaultSampleInterval); !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("expected ErrTooFewSamples, got %v", err)
	}
	if _, err := Differentiate(nil, DefaultSampleInterval); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestDifferentiateRejectsCoarseInterval(t *testing.T) {
	_, err := Differentiate([]float64{0, 1, 2, 3}, 0.02)
	var coarse *SampleIntervalTooCoarseError
	if !errors.As(err, &coarse) {
		t.Fatalf("expected SampleIntervalTooCoarseError, got %v", err)
	}
	if coarse.Interval != 0.02 {
		t.Fatalf("unexpected interval: %v", coarse.Interval)
	}
	if _, err := Differentiate([]float64{0, 1, 2, 3}, MaxSampleInterval); err != nil {
		t.Fatalf("interval at the limit should be accepted: %v", err)
	}
}

func TestDifferentiateRejectsInvalidInterval(t *testing.T) {
	for _, interval := range []float64{0, -0.001, math.NaN(), math.Inf(1)} {
		if _, err := Differentiate([]float64{0, 1}, interval); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("interval %v: expected ErrInvalidInterval, got %v", interval, err)
		}
	}
}

func TestInferSampleInterval(t *testing.T) {
	got, err := InferSampleInterval([]float64{0, 0.001, 0.002, 0.002, 0.003, 0.010})
	if err != nil {
		t.Fatalf("InferSampleInterval error: %v", err)
	}
	if math.Abs(got-0.001) > 1e-12 {
		t.Fatalf("got %v, want 0.001", got)
	}
	if _, err := InferSampleInterval([]float64{1}); !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("expected ErrTooFewSamples, got %v", err)
	}
}

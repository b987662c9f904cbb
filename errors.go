package cmjstats

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when a series or window has no samples.
	ErrEmptyInput = errors.New("empty input")
	// ErrTooFewSamples is returned when a window is too short to differentiate.
	ErrTooFewSamples = errors.New("too few samples")
	// ErrInvalidInterval is returned for a non-positive or non-finite sampling interval.
	ErrInvalidInterval = errors.New("invalid sample interval")
)

// HeaderMissingError reports a required column label absent from a source header.
type HeaderMissingError struct {
	Label string
}

func (e *HeaderMissingError) Error() string {
	return fmt.Sprintf("header missing: no %q column", e.Label)
}

// SegmentationIncompleteError reports the first phase whose threshold never fired.
type SegmentationIncompleteError struct {
	Phase Phase
}

func (e *SegmentationIncompleteError) Error() string {
	return fmt.Sprintf("segmentation incomplete: %s phase not found", e.Phase)
}

// SampleIntervalTooCoarseError reports an interval above MaxSampleInterval.
type SampleIntervalTooCoarseError struct {
	Interval float64
}

func (e *SampleIntervalTooCoarseError) Error() string {
	return fmt.Sprintf("sample interval %gs too coarse (max %gs)", e.Interval, MaxSampleInterval)
}

// ErrorKind classifies an error returned by the engine. Unknown errors map to "other".
func ErrorKind(err error) string {
	var (
		hm *HeaderMissingError
		si *SegmentationIncompleteError
		ic *SampleIntervalTooCoarseError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &hm):
		return "header_missing"
	case errors.As(err, &si):
		return "segmentation_incomplete"
	case errors.As(err, &ic):
		return "sample_interval_too_coarse"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrTooFewSamples):
		return "too_few_samples"
	case errors.Is(err, ErrInvalidInterval):
		return "invalid_interval"
	default:
		return "other"
	}
}

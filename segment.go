package cmjstats

import (
	"encoding/json"
	"fmt"
)

// Gravity is standard gravitational acceleration in m/s².
const Gravity = 9.80665

// Phase names a segment of the jump.
type Phase string

const (
	PhaseUnweighting Phase = "unweighting"
	PhaseBraking     Phase = "braking"
	PhasePropulsive  Phase = "propulsive"
	// PhaseUpswing is the positive-velocity window of the velocity source.
	PhaseUpswing Phase = "upswing"
)

// TakeoffRule selects how the end of the propulsive phase is detected.
type TakeoffRule string

const (
	// TakeoffForce ends propulsion when combined force drops below TakeoffForceN.
	TakeoffForce TakeoffRule = "force"
	// TakeoffAcceleration ends propulsion when acceleration falls below -g + TakeoffAccelMargin.
	TakeoffAcceleration TakeoffRule = "acceleration"
)

// Mark is an optional position in a merged record.
type Mark struct {
	Pos   int
	Valid bool
}

// At returns a set mark at pos.
func At(pos int) Mark {
	return Mark{Pos: pos, Valid: true}
}

// Get returns the position and whether the mark is set.
func (m Mark) Get() (int, bool) {
	return m.Pos, m.Valid
}

func (m Mark) String() string {
	if !m.Valid {
		return "unset"
	}
	return fmt.Sprint(m.Pos)
}

// MarshalJSON encodes an unset mark as null.
func (m Mark) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Pos)
}

// UnmarshalJSON decodes null as an unset mark.
func (m *Mark) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Mark{}
		return nil
	}
	var pos int
	if err := json.Unmarshal(data, &pos); err != nil {
		return err
	}
	*m = At(pos)
	return nil
}

// PhaseBoundary is the inclusive (start, end) pair of one phase.
type PhaseBoundary struct {
	Phase Phase `json:"phase"`
	Start Mark  `json:"start"`
	End   Mark  `json:"end"`
}

// Phases holds the detected phase onsets of one jump.
type Phases struct {
	UnweightStart   Mark `json:"unweight_start"`
	BrakeStart      Mark `json:"brake_start"`
	PropulsionStart Mark `json:"propulsion_start"`
	PropulsionEnd   Mark `json:"propulsion_end"`
}

// Boundaries returns the unweighting, braking and propulsive boundaries.
// An end is unset when the onset it derives from was never detected.
func (p Phases) Boundaries() []PhaseBoundary {
	return []PhaseBoundary{
		{Phase: PhaseUnweighting, Start: p.UnweightStart, End: before(p.BrakeStart)},
		{Phase: PhaseBraking, Start: p.BrakeStart, End: before(p.PropulsionStart)},
		{Phase: PhasePropulsive, Start: p.PropulsionStart, End: p.PropulsionEnd},
	}
}

func before(m Mark) Mark {
	if !m.Valid {
		return Mark{}
	}
	return At(m.Pos - 1)
}

// Complete reports the first phase left undetected, or nil.
func (p Phases) Complete() error {
	switch {
	case !p.UnweightStart.Valid:
		return &SegmentationIncompleteError{Phase: PhaseUnweighting}
	case !p.BrakeStart.Valid:
		return &SegmentationIncompleteError{Phase: PhaseBraking}
	case !p.PropulsionStart.Valid, !p.PropulsionEnd.Valid:
		return &SegmentationIncompleteError{Phase: PhasePropulsive}
	}
	return nil
}

// Propulsion returns [propulsion_start, propulsion_end).
func (p Phases) Propulsion() (Window, error) {
	if err := p.Complete(); err != nil {
		return Window{}, err
	}
	return Window{Start: p.PropulsionStart.Pos, End: p.PropulsionEnd.Pos}, nil
}

// NegativeVelocity returns [unweight_start, brake_end).
func (p Phases) NegativeVelocity() (Window, error) {
	if err := p.Complete(); err != nil {
		return Window{}, err
	}
	return Window{Start: p.UnweightStart.Pos, End: p.PropulsionStart.Pos - 1}, nil
}

// PositiveAcceleration returns [brake_start, propulsion_end).
func (p Phases) PositiveAcceleration() (Window, error) {
	if err := p.Complete(); err != nil {
		return Window{}, err
	}
	return Window{Start: p.BrakeStart.Pos, End: p.PropulsionEnd.Pos}, nil
}

// SegmentOptions holds the thresholds of the phase segmenter.
type SegmentOptions struct {
	// UnweightOffset is subtracted from the unweighting detection index
	// (30 samples at 1 kHz is the 30 ms reaction correction).
	UnweightOffset int `json:"unweight_offset"`
	// UnweightStdFactor scales the weight std-dev below the mean that marks unweighting.
	UnweightStdFactor float64 `json:"unweight_std_factor"`
	// PropulsionVelocity is the velocity in m/s at which propulsion starts.
	PropulsionVelocity float64 `json:"propulsion_velocity"`
	// Takeoff selects the takeoff rule.
	Takeoff TakeoffRule `json:"takeoff"`
	// TakeoffForceN is the combined force in N below which the athlete is airborne.
	TakeoffForceN float64 `json:"takeoff_force_n"`
	// TakeoffAccelMargin is added to -g for the acceleration takeoff rule.
	TakeoffAccelMargin float64 `json:"takeoff_accel_margin"`
	// SampleInterval is used by the acceleration takeoff rule.
	SampleInterval float64 `json:"sample_interval_s"`
}

// DefaultSegmentOptions returns the thresholds used for 1 kHz force-plate data.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		UnweightOffset:     30,
		UnweightStdFactor:  5,
		PropulsionVelocity: 0.01,
		Takeoff:            TakeoffForce,
		TakeoffForceN:      10,
		TakeoffAccelMargin: 0.1,
		SampleInterval:     DefaultSampleInterval,
	}
}

type segState int

const (
	stateQuiet segState = iota
	stateUnweighting
	stateBraking
	statePropulsion
	stateAirborne
)

// Segment runs a single forward pass over rec and detects the phase onsets.
// Each threshold is only searched for once its predecessor has fired, and
// at most one threshold fires per row. When a threshold never fires, the
// returned Phases is partial and the error is a *SegmentationIncompleteError.
func Segment(rec *MergedRecord, weight SystemWeight, opts SegmentOptions) (Phases, error) {
	var p Phases
	if rec.Len() == 0 {
		return p, fmt.Errorf("segment: %w", ErrEmptyInput)
	}
	takeoff, err := takeoffDetector(rec, opts)
	if err != nil {
		return p, err
	}

	unweightThreshold := weight.Mean - opts.UnweightStdFactor*weight.Std
	state := stateQuiet
	for i := 0; i < rec.Len() && state != stateAirborne; i++ {
		switch state {
		case stateQuiet:
			if rec.Combined[i] < unweightThreshold {
				p.UnweightStart = At(max(i-opts.UnweightOffset, 0))
				state = stateUnweighting
			}
		case stateUnweighting:
			if rec.Combined[i] >= weight.Mean {
				p.BrakeStart = At(i)
				state = stateBraking
			}
		case stateBraking:
			if rec.Velocity[i] >= opts.PropulsionVelocity {
				p.PropulsionStart = At(i)
				state = statePropulsion
			}
		case statePropulsion:
			if takeoff(i) {
				p.PropulsionEnd = At(i)
				state = stateAirborne
			}
		}
	}
	return p, p.Complete()
}

func takeoffDetector(rec *MergedRecord, opts SegmentOptions) (func(int) bool, error) {
	switch opts.Takeoff {
	case "", TakeoffForce:
		return func(i int) bool {
			return rec.Combined[i] < opts.TakeoffForceN
		}, nil
	case TakeoffAcceleration:
		if err := checkInterval(opts.SampleInterval); err != nil {
			return nil, err
		}
		limit := -Gravity + opts.TakeoffAccelMargin
		return func(i int) bool {
			if i == 0 {
				return false
			}
			return (rec.Velocity[i]-rec.Velocity[i-1])/opts.SampleInterval < limit
		}, nil
	default:
		return nil, fmt.Errorf("unknown takeoff rule %q", opts.Takeoff)
	}
}

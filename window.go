package cmjstats

import "fmt"

// Window is a half-open range [Start, End) of positions in a series.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of positions covered by w.
func (w Window) Len() int {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d)", w.Start, w.End)
}

// ExtractPositiveVelocityWindow finds the upswing of a velocity attribute:
// from the first positive sample after the initial countermovement dip up
// to, but excluding, the next negative sample. Positive samples before the
// first dip are treated as noise.
func ExtractPositiveVelocityWindow(vel *Attribute) (Window, error) {
	v, err := vel.require(RoleVelocity)
	if err != nil {
		return Window{}, err
	}
	if len(v) == 0 {
		return Window{}, fmt.Errorf("positive velocity window: %w", ErrEmptyInput)
	}
	return positiveVelocityWindow(v)
}

func positiveVelocityWindow(v []float64) (Window, error) {
	var (
		armed   bool
		start   Mark
		endMark Mark
	)
	for i, x := range v {
		if !armed {
			if x < 0 {
				armed = true
			}
			continue
		}
		if !start.Valid {
			if x > 0 {
				start = At(i)
			}
			continue
		}
		if x < 0 {
			endMark = At(i)
			break
		}
	}
	if !start.Valid || !endMark.Valid {
		return Window{}, &SegmentationIncompleteError{Phase: PhaseUpswing}
	}
	return Window{Start: start.Pos, End: endMark.Pos}, nil
}

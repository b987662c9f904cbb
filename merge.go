package cmjstats

import (
	"fmt"
	"math"
)

// MergedRecord is the inner join of a velocity and a force attribute on time.
// All columns have the same length; positions are shared across columns.
type MergedRecord struct {
	Time     []float64
	Velocity []float64
	Left     []float64
	Right    []float64
	Combined []float64
}

// Len returns the number of merged rows.
func (m *MergedRecord) Len() int {
	return len(m.Time)
}

// Slice returns the rows of w as a new record whose positions start at 0.
func (m *MergedRecord) Slice(w Window) (*MergedRecord, error) {
	if w.Start < 0 || w.End > m.Len() || w.Start > w.End {
		return nil, fmt.Errorf("slice %s of %d rows: out of range", w, m.Len())
	}
	return &MergedRecord{
		Time:     m.Time[w.Start:w.End:w.End],
		Velocity: m.Velocity[w.Start:w.End:w.End],
		Left:     m.Left[w.Start:w.End:w.End],
		Right:    m.Right[w.Start:w.End:w.End],
		Combined: m.Combined[w.Start:w.End:w.End],
	}, nil
}

// Merge inner-joins vel and force on their time columns. Rows keep the
// velocity source order; time values present in only one input are dropped.
// Duplicate time keys produce one row per matching pair. Left and right
// force are NaN when the force attribute does not carry them.
func Merge(vel, force *Attribute) (*MergedRecord, error) {
	vt, err := vel.require(RoleTime)
	if err != nil {
		return nil, err
	}
	vv, err := vel.require(RoleVelocity)
	if err != nil {
		return nil, err
	}
	ft, err := force.require(RoleTime)
	if err != nil {
		return nil, err
	}
	fc, err := force.require(RoleCombined)
	if err != nil {
		return nil, err
	}
	fl, _ := force.Values(RoleLeft)
	fr, _ := force.Values(RoleRight)

	byTime := make(map[float64][]int, len(ft))
	for i, t := range ft {
		byTime[t] = append(byTime[t], i)
	}

	n := min(len(vt), len(ft))
	out := &MergedRecord{
		Time:     make([]float64, 0, n),
		Velocity: make([]float64, 0, n),
		Left:     make([]float64, 0, n),
		Right:    make([]float64, 0, n),
		Combined: make([]float64, 0, n),
	}
	for i, t := range vt {
		for _, j := range byTime[t] {
			out.Time = append(out.Time, t)
			out.Velocity = append(out.Velocity, vv[i])
			out.Left = append(out.Left, valueAt(fl, j))
			out.Right = append(out.Right, valueAt(fr, j))
			out.Combined = append(out.Combined, fc[j])
		}
	}
	return out, nil
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return math.NaN()
}

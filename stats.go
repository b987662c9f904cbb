package cmjstats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// EarlyPropulsionSamples is the length of the early-propulsion window
// (100 ms at 1 kHz).
const EarlyPropulsionSamples = 100

// Metric names, in reporting order.
const (
	MetricVPeakProp    = "v_peak_prop"
	MetricVPeakNeg     = "v_peak_neg"
	MetricVAvgNeg      = "v_avg_neg"
	MetricTToVPeakProp = "t_to_v_peak_prop"
	MetricVAvg100Prop  = "v_avg_100_prop"
	MetricAAvg100Prop  = "a_avg_100_prop"
	MetricAPeak100Prop = "a_peak_100_prop"
	MetricVPeak100Prop = "v_peak_100_prop"
	MetricAPeakPos     = "a_peak_pos"
)

// MetricNames lists every metric of JumpMetrics in reporting order.
var MetricNames = []string{
	MetricVPeakProp,
	MetricVPeakNeg,
	MetricVAvgNeg,
	MetricTToVPeakProp,
	MetricVAvg100Prop,
	MetricAAvg100Prop,
	MetricAPeak100Prop,
	MetricVPeak100Prop,
	MetricAPeakPos,
}

// JumpMetrics are the performance metrics of one countermovement jump.
type JumpMetrics struct {
	VPeakProp    float64 `json:"v_peak_prop"`
	VPeakNeg     float64 `json:"v_peak_neg"`
	VAvgNeg      float64 `json:"v_avg_neg"`
	TToVPeakProp float64 `json:"t_to_v_peak_prop"`
	VAvg100Prop  float64 `json:"v_avg_100_prop"`
	AAvg100Prop  float64 `json:"a_avg_100_prop"`
	APeak100Prop float64 `json:"a_peak_100_prop"`
	VPeak100Prop float64 `json:"v_peak_100_prop"`
	APeakPos     float64 `json:"a_peak_pos"`
}

// Map returns the metrics keyed by metric name.
func (m JumpMetrics) Map() map[string]float64 {
	return map[string]float64{
		MetricVPeakProp:    m.VPeakProp,
		MetricVPeakNeg:     m.VPeakNeg,
		MetricVAvgNeg:      m.VAvgNeg,
		MetricTToVPeakProp: m.TToVPeakProp,
		MetricVAvg100Prop:  m.VAvg100Prop,
		MetricAAvg100Prop:  m.AAvg100Prop,
		MetricAPeak100Prop: m.APeak100Prop,
		MetricVPeak100Prop: m.VPeak100Prop,
		MetricAPeakPos:     m.APeakPos,
	}
}

// Values returns the metrics in MetricNames order.
func (m JumpMetrics) Values() []float64 {
	return []float64{
		m.VPeakProp, m.VPeakNeg, m.VAvgNeg, m.TToVPeakProp,
		m.VAvg100Prop, m.AAvg100Prop, m.APeak100Prop, m.VPeak100Prop,
		m.APeakPos,
	}
}

// MarshalJSON writes the metrics in reporting order. Values that are not
// finite, such as the average of an empty braking window, become null.
func (m JumpMetrics) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, v := range m.Values() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(MetricNames[i]))
		b.WriteByte(':')
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteString("null")
			continue
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads the MarshalJSON form; null and missing metrics decode as NaN.
func (m *JumpMetrics) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for i, dst := range m.fields() {
		if v := raw[MetricNames[i]]; v != nil {
			*dst = *v
		} else {
			*dst = math.NaN()
		}
	}
	return nil
}

func (m *JumpMetrics) fields() []*float64 {
	return []*float64{
		&m.VPeakProp, &m.VPeakNeg, &m.VAvgNeg, &m.TToVPeakProp,
		&m.VAvg100Prop, &m.AAvg100Prop, &m.APeak100Prop, &m.VPeak100Prop,
		&m.APeakPos,
	}
}

// ComputeMetrics slices rec by the detected phases and aggregates the metric
// set. Windows are re-based before any positional lookup, so "first 100
// samples" always counts from the window start.
func ComputeMetrics(rec *MergedRecord, phases Phases, interval float64) (JumpMetrics, error) {
	var m JumpMetrics

	prop, err := phaseWindow(rec, phases.Propulsion, "propulsion")
	if err != nil {
		return m, err
	}
	neg, err := phaseWindow(rec, phases.NegativeVelocity, "negative velocity")
	if err != nil {
		return m, err
	}
	pos, err := phaseWindow(rec, phases.PositiveAcceleration, "positive acceleration")
	if err != nil {
		return m, err
	}

	propAcc, err := Differentiate(prop.Velocity, interval)
	if err != nil {
		return m, fmt.Errorf("propulsion acceleration: %w", err)
	}
	posAcc, err := Differentiate(pos.Velocity, interval)
	if err != nil {
		return m, fmt.Errorf("positive acceleration: %w", err)
	}

	peak := argMax(prop.Velocity)
	if peak < 0 {
		return m, fmt.Errorf("propulsion window has no finite velocity: %w", ErrEmptyInput)
	}
	m.VPeakProp = prop.Velocity[peak]
	m.TToVPeakProp = prop.Time[peak] - prop.Time[0]
	m.VPeakNeg = minValue(neg.Velocity)
	m.VAvgNeg = average(neg.Velocity)

	early := min(EarlyPropulsionSamples, prop.Len())
	m.VAvg100Prop = average(prop.Velocity[:early])
	m.VPeak100Prop = maxValue(prop.Velocity[:early])
	m.AAvg100Prop = average(propAcc[:early])
	m.APeak100Prop = maxValue(propAcc[:early])

	m.APeakPos = maxValue(posAcc)
	return m, nil
}

func phaseWindow(rec *MergedRecord, window func() (Window, error), name string) (*MergedRecord, error) {
	w, err := window()
	if err != nil {
		return nil, err
	}
	if w.Len() == 0 {
		return nil, fmt.Errorf("%s window %s: %w", name, w, ErrEmptyInput)
	}
	sub, err := rec.Slice(w)
	if err != nil {
		return nil, fmt.Errorf("%s window: %w", name, err)
	}
	return sub, nil
}

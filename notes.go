package cmjstats

import (
	"fmt"
	"strings"
)

// BuildJumpNotes renders a plain-text summary of one analyzed jump.
func BuildJumpNotes(name string, r *Result) string {
	if r == nil {
		return ""
	}
	m := r.Metrics

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Jump: %s\n", name)
	}
	fmt.Fprintf(
		&b,
		"System weight %.1f N (sd %.2f) | %d samples @ %.4f s | takeoff by %s\n",
		r.Weight.Mean,
		r.Weight.Std,
		r.MergedRows,
		r.SampleInterval,
		r.Takeoff,
	)
	for _, pb := range r.Boundaries {
		fmt.Fprintf(&b, "Phase %-12s %s..%s\n", pb.Phase, pb.Start, pb.End)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Time to v peak pos:      %.4f s\n", m.TToVPeakProp)
	fmt.Fprintf(&b, "v peak pos:              %.4f m/s\n", m.VPeakProp)
	fmt.Fprintf(&b, "v peak neg:              %.4f m/s\n", m.VPeakNeg)
	fmt.Fprintf(&b, "v avg neg:               %.4f m/s\n", m.VAvgNeg)
	fmt.Fprintf(&b, "v avg 100ms prop:        %.4f m/s\n", m.VAvg100Prop)
	fmt.Fprintf(&b, "v peak 100ms prop:       %.4f m/s\n", m.VPeak100Prop)
	fmt.Fprintf(&b, "a avg 100ms prop:        %.4f m/s^2\n", m.AAvg100Prop)
	fmt.Fprintf(&b, "a peak 100ms prop:       %.4f m/s^2\n", m.APeak100Prop)
	fmt.Fprintf(&b, "a peak pos:              %.4f m/s^2\n", m.APeakPos)

	ratios := []struct {
		label    string
		num, den float64
	}{
		{"v peak neg / t to v peak pos", m.VPeakNeg, m.TToVPeakProp},
		{"v peak neg / v peak prop", m.VPeakNeg, m.VPeakProp},
		{"v avg neg / v peak prop", m.VAvgNeg, m.VPeakProp},
		{"v avg neg / v avg 100ms prop", m.VAvgNeg, m.VAvg100Prop},
		{"v peak neg / v avg 100ms prop", m.VPeakNeg, m.VAvg100Prop},
	}
	b.WriteString("\n")
	for _, r := range ratios {
		if r.den == 0 || !isFinite(r.num/r.den) {
			fmt.Fprintf(&b, "%-31s n/a\n", r.label+":")
			continue
		}
		fmt.Fprintf(&b, "%-31s %.4f\n", r.label+":", r.num/r.den)
	}
	return b.String()
}

package cmjstats

import (
	"math"
	"testing"
)

func testAttribute(t *testing.T, header []string, cols []Column, rows ...[]string) *Attribute {
	t.Helper()
	attr, err := LoadAttribute(&Table{Header: header, Rows: rows}, cols)
	if err != nil {
		t.Fatalf("LoadAttribute error: %v", err)
	}
	return attr
}

func TestMergeIsInnerJoin(t *testing.T) {
	vel := testAttribute(t,
		[]string{"t", "v"},
		VelocityColumns{Time: "t", Velocity: "v"}.Columns(),
		[]string{"0.000", "0.1"},
		[]string{"0.001", "0.2"},
		[]string{"0.002", "0.3"},
		[]string{"0.004", "0.5"},
	)
	force := testAttribute(t,
		[]string{"t", "l", "r", "c"},
		ForceColumns{Time: "t", Left: "l", Right: "r", Combined: "c"}.Columns(),
		[]string{"0.001", "1", "2", "3"},
		[]string{"0.002", "4", "5", "9"},
		[]string{"0.003", "6", "7", "13"},
		[]string{"0.004", "8", "9", "17"},
	)

	rec, err := Merge(vel, force)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	want := []float64{0.001, 0.002, 0.004}
	if rec.Len() != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), rec.Len())
	}

	velTimes, _ := vel.Values(RoleTime)
	forceTimes, _ := force.Values(RoleTime)
	for i, tm := range rec.Time {
		if tm != want[i] {
			t.Fatalf("row %d: time %v, want %v", i, tm, want[i])
		}
		if !contains(velTimes, tm) || !contains(forceTimes, tm) {
			t.Fatalf("row %d: time %v not present in both inputs", i, tm)
		}
	}
	if rec.Velocity[2] != 0.5 || rec.Combined[2] != 17 || rec.Left[0] != 1 || rec.Right[1] != 5 {
		t.Fatalf("columns misaligned: %+v", rec)
	}
}

func TestMergeWithoutSideForcesUsesNaN(t *testing.T) {
	vel := testAttribute(t, []string{"t", "v"}, VelocityColumns{Time: "t", Velocity: "v"}.Columns(), []string{"0", "1"})
	force := testAttribute(t,
		[]string{"t", "c"},
		[]Column{{Role: RoleTime, Label: "t"}, {Role: RoleCombined, Label: "c"}},
		[]string{"0", "700"},
	)
	rec, err := Merge(vel, force)
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if !math.IsNaN(rec.Left[0]) || !math.IsNaN(rec.Right[0]) {
		t.Fatalf("expected NaN side forces, got %v/%v", rec.Left[0], rec.Right[0])
	}
}

func TestMergeRequiresCombinedForce(t *testing.T) {
	vel := testAttribute(t, []string{"t", "v"}, VelocityColumns{Time: "t", Velocity: "v"}.Columns(), []string{"0", "1"})
	force := testAttribute(t, []string{"t"}, []Column{{Role: RoleTime, Label: "t"}}, []string{"0"})
	if _, err := Merge(vel, force); ErrorKind(err) != "header_missing" {
		t.Fatalf("expected header_missing, got %v", err)
	}
}

func TestSliceRebasesPositions(t *testing.T) {
	rec := &MergedRecord{
		Time:     []float64{0, 1, 2, 3},
		Velocity: []float64{10, 11, 12, 13},
		Left:     []float64{0, 0, 0, 0},
		Right:    []float64{0, 0, 0, 0},
		Combined: []float64{5, 6, 7, 8},
	}
	sub, err := rec.Slice(Window{Start: 1, End: 3})
	if err != nil {
		t.Fatalf("Slice error: %v", err)
	}
	if sub.Len() != 2 || sub.Velocity[0] != 11 || sub.Time[1] != 2 {
		t.Fatalf("unexpected slice: %+v", sub)
	}
	if _, err := rec.Slice(Window{Start: 2, End: 5}); err == nil {
		t.Fatal("expected out of range error")
	}
}

func contains(values []float64, v float64) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/hawkin"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "jumps.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testJump(t *testing.T, key string, vPeak float64) Jump {
	t.Helper()
	name, err := hawkin.Parse(key)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", key, err)
	}
	return Jump{
		Name:           name,
		Takeoff:        cmjstats.TakeoffForce,
		SampleInterval: 0.001,
		Weight:         cmjstats.SystemWeight{Mean: 700, Std: 2},
		Metrics:        cmjstats.JumpMetrics{VPeakProp: vPeak, VPeakNeg: -1.5, VAvgNeg: math.NaN()},
		AnalyzedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestInsertAndListJumps(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run := Run{ID: "run-1", StartedAt: time.Now(), InputDir: "/data", Pairs: 4, Failures: 1}
	jumps := []Jump{
		testJump(t, "Robin_Volkmar-12_20_2020.csv", 2.3),
		testJump(t, "Adam_Lewandowski-01_01_2021.csv", 2.6),
		testJump(t, "Robin_Volkmar-11_20_2020.csv", 2.1),
	}
	failures := []Failure{{Key: "Szymon_Karpecki-12_20_2020.csv", Kind: "segmentation_incomplete", Message: "braking phase not found"}}
	if err := s.InsertRun(ctx, run, jumps, failures); err != nil {
		t.Fatalf("InsertRun error: %v", err)
	}

	all, err := s.ListJumps(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListJumps error: %v", err)
	}
	wantOrder := []string{
		"Adam_Lewandowski-01_01_2021.csv",
		"Robin_Volkmar-11_20_2020.csv",
		"Robin_Volkmar-12_20_2020.csv",
	}
	if len(all) != len(wantOrder) {
		t.Fatalf("expected %d jumps, got %d", len(wantOrder), len(all))
	}
	for i, j := range all {
		if j.Name.Key != wantOrder[i] {
			t.Fatalf("position %d: got %s, want %s", i, j.Name.Key, wantOrder[i])
		}
		if j.RunID != "run-1" {
			t.Fatalf("unexpected run id %q", j.RunID)
		}
	}

	got := all[0]
	if got.Metrics.VPeakProp != 2.6 || got.Metrics.VPeakNeg != -1.5 {
		t.Fatalf("metrics did not round trip: %+v", got.Metrics)
	}
	if !math.IsNaN(got.Metrics.VAvgNeg) {
		t.Fatalf("non-finite metric should read back as NaN, got %v", got.Metrics.VAvgNeg)
	}
	if got.Weight.Mean != 700 || got.Takeoff != cmjstats.TakeoffForce {
		t.Fatalf("unexpected jump: %+v", got)
	}
	if !got.Name.Date.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", got.Name.Date)
	}

	robin, err := s.ListJumps(ctx, Filter{First: "Robin", Last: "Volkmar", Limit: 1})
	if err != nil {
		t.Fatalf("ListJumps filter error: %v", err)
	}
	if len(robin) != 1 || robin[0].Name.Key != "Robin_Volkmar-11_20_2020.csv" {
		t.Fatalf("unexpected filtered jumps: %+v", robin)
	}

	recent, err := s.ListJumps(ctx, Filter{Since: time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("ListJumps since error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 jumps since December, got %d", len(recent))
	}

	stored, err := s.ListFailures(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListFailures error: %v", err)
	}
	if len(stored) != 1 || stored[0].Kind != "segmentation_incomplete" || stored[0].RunID != "run-1" {
		t.Fatalf("unexpected failures: %+v", stored)
	}
}

func TestInsertRunRollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	dup := testJump(t, "Robin_Volkmar-12_20_2020.csv", 2.3)
	err := s.InsertRun(ctx, Run{ID: "run-2", StartedAt: time.Now()}, []Jump{dup, dup}, nil)
	if err == nil {
		t.Fatal("expected duplicate jump error")
	}

	jumps, err := s.ListJumps(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListJumps error: %v", err)
	}
	if len(jumps) != 0 {
		t.Fatalf("transaction should have rolled back, found %d jumps", len(jumps))
	}
	if err := s.InsertRun(ctx, Run{ID: "run-2", StartedAt: time.Now()}, []Jump{dup}, nil); err != nil {
		t.Fatalf("run id should be reusable after rollback: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jumps.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d error: %v", i+1, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close error: %v", err)
		}
	}
}

// Package store keeps the jump history in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/lucasjlepore/cmj-analyzer/hawkin"
)

const dateLayout = "2006-01-02"

// Store wraps SQLite access for batch runs and their jumps.
type Store struct {
	db *sql.DB
}

// Run is one batch execution.
type Run struct {
	ID        string
	StartedAt time.Time
	InputDir  string
	Pairs     int
	Failures  int
}

// Jump is one analyzed jump as persisted.
type Jump struct {
	RunID          string
	Name           hawkin.Name
	Takeoff        cmjstats.TakeoffRule
	SampleInterval float64
	Weight         cmjstats.SystemWeight
	Metrics        cmjstats.JumpMetrics
	AnalyzedAt     time.Time
}

// Failure is one pair that could not be analyzed.
type Failure struct {
	RunID   string
	Key     string
	Kind    string
	Message string
}

// Filter narrows ListJumps. Empty fields match everything.
type Filter struct {
	First string
	Last  string
	Since time.Time
	Limit int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			input_dir TEXT NOT NULL,
			pairs INTEGER NOT NULL,
			failures INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS jumps (
			run_id TEXT NOT NULL,
			jump_key TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			jump_date TEXT NOT NULL,
			takeoff_rule TEXT NOT NULL,
			sample_interval REAL NOT NULL,
			weight_mean REAL,
			weight_std REAL,
			v_peak_prop REAL,
			v_peak_neg REAL,
			v_avg_neg REAL,
			t_to_v_peak_prop REAL,
			v_avg_100_prop REAL,
			a_avg_100_prop REAL,
			a_peak_100_prop REAL,
			v_peak_100_prop REAL,
			a_peak_pos REAL,
			analyzed_at TEXT NOT NULL,
			PRIMARY KEY (run_id, jump_key)
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			run_id TEXT NOT NULL,
			jump_key TEXT NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			PRIMARY KEY (run_id, jump_key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jumps_athlete ON jumps(last_name, first_name, jump_date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a batch run with its jumps and failures in one transaction.
func (s *Store) InsertRun(ctx context.Context, run Run, jumps []Jump, failures []Failure) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input_dir, pairs, failures) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.InputDir, run.Pairs, run.Failures,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(jumps) > 0 {
		stmt, perr := tx.PrepareContext(ctx, `INSERT INTO jumps (
			run_id, jump_key, first_name, last_name, jump_date, takeoff_rule, sample_interval,
			weight_mean, weight_std,
			v_peak_prop, v_peak_neg, v_avg_neg, t_to_v_peak_prop, v_avg_100_prop,
			a_avg_100_prop, a_peak_100_prop, v_peak_100_prop, a_peak_pos, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, j := range jumps {
			args := []any{
				run.ID, j.Name.Key, j.Name.First, j.Name.Last, j.Name.Date.Format(dateLayout),
				string(j.Takeoff), j.SampleInterval,
				nullable(j.Weight.Mean), nullable(j.Weight.Std),
			}
			for _, v := range j.Metrics.Values() {
				args = append(args, nullable(v))
			}
			args = append(args, j.AnalyzedAt.UTC().Format(time.RFC3339Nano))
			if _, err = stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert jump %s: %w", j.Name.Key, err)
			}
		}
	}

	if len(failures) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO failures (run_id, jump_key, kind, message) VALUES (?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, f := range failures {
			if _, err = stmt.ExecContext(ctx, run.ID, f.Key, f.Kind, f.Message); err != nil {
				return fmt.Errorf("insert failure %s: %w", f.Key, err)
			}
		}
	}

	err = tx.Commit()
	return err
}

// ListJumps returns stored jumps ordered by last name, first name, jump date
// and analysis time.
func (s *Store) ListJumps(ctx context.Context, f Filter) ([]Jump, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Last != "" {
		clauses = append(clauses, "last_name = ?")
		args = append(args, f.Last)
	}
	if f.First != "" {
		clauses = append(clauses, "first_name = ?")
		args = append(args, f.First)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "jump_date >= ?")
		args = append(args, f.Since.Format(dateLayout))
	}
	query := fmt.Sprintf(`SELECT run_id, jump_key, first_name, last_name, jump_date, takeoff_rule, sample_interval,
		weight_mean, weight_std,
		v_peak_prop, v_peak_neg, v_avg_neg, t_to_v_peak_prop, v_avg_100_prop,
		a_avg_100_prop, a_peak_100_prop, v_peak_100_prop, a_peak_pos, analyzed_at
		FROM jumps
		WHERE %s
		ORDER BY last_name, first_name, jump_date, analyzed_at`, strings.Join(clauses, " AND "))
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var jumps []Jump
	for rows.Next() {
		var (
			j          Jump
			date       string
			takeoff    string
			analyzedAt string
			weight     [2]sql.NullFloat64
			metrics    [9]sql.NullFloat64
		)
		dest := []any{&j.RunID, &j.Name.Key, &j.Name.First, &j.Name.Last, &date, &takeoff, &j.SampleInterval, &weight[0], &weight[1]}
		for i := range metrics {
			dest = append(dest, &metrics[i])
		}
		dest = append(dest, &analyzedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if j.Name.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("jump %s: date: %w", j.Name.Key, err)
		}
		if j.AnalyzedAt, err = time.Parse(time.RFC3339Nano, analyzedAt); err != nil {
			return nil, fmt.Errorf("jump %s: analyzed_at: %w", j.Name.Key, err)
		}
		j.Takeoff = cmjstats.TakeoffRule(takeoff)
		j.Weight = cmjstats.SystemWeight{Mean: orNaN(weight[0]), Std: orNaN(weight[1])}
		j.Metrics = cmjstats.JumpMetrics{
			VPeakProp:    orNaN(metrics[0]),
			VPeakNeg:     orNaN(metrics[1]),
			VAvgNeg:      orNaN(metrics[2]),
			TToVPeakProp: orNaN(metrics[3]),
			VAvg100Prop:  orNaN(metrics[4]),
			AAvg100Prop:  orNaN(metrics[5]),
			APeak100Prop: orNaN(metrics[6]),
			VPeak100Prop: orNaN(metrics[7]),
			APeakPos:     orNaN(metrics[8]),
		}
		jumps = append(jumps, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jumps, nil
}

// ListFailures returns the failures recorded for a run.
func (s *Store) ListFailures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, jump_key, kind, message FROM failures WHERE run_id = ? ORDER BY jump_key`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RunID, &f.Key, &f.Kind, &f.Message); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return failures, nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

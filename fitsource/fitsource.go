// Package fitsource turns FIT activity files into velocity tables the engine
// can load, for devices that log vertical speed instead of exporting CSV.
package fitsource

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	cmjstats "github.com/lucasjlepore/cmj-analyzer"
	"github.com/tormoder/fit"
)

// ErrNoVerticalSpeed is returned when no record carries a valid vertical speed.
var ErrNoVerticalSpeed = errors.New("no record with vertical speed")

// Options controls how record messages are mapped to rows.
type Options struct {
	// Columns names the produced header. Zero value uses the vendor labels.
	Columns cmjstats.VelocityColumns
	// SampleRate in Hz derives the time column from the record index. FIT
	// timestamps have one-second resolution, so high-rate loggers need it.
	// Zero uses elapsed seconds since the first valid record.
	SampleRate float64
}

// Decode reads a FIT activity and returns a velocity table with one row per
// record message that carries a valid vertical speed.
func Decode(r io.Reader, opts Options) (*cmjstats.Table, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("fit activity: %w", err)
	}
	return FromRecords(activity.Records, opts)
}

// FromRecords builds the velocity table from already decoded record messages.
func FromRecords(records []*fit.RecordMsg, opts Options) (*cmjstats.Table, error) {
	cols := opts.Columns
	if cols.Time == "" || cols.Velocity == "" {
		cols = cmjstats.DefaultVelocityColumns()
	}
	if opts.SampleRate < 0 || math.IsNaN(opts.SampleRate) {
		return nil, fmt.Errorf("invalid sample rate %v", opts.SampleRate)
	}

	table := &cmjstats.Table{Header: []string{cols.Time, cols.Velocity}}
	var first *fit.RecordMsg
	for _, rec := range records {
		if rec == nil {
			continue
		}
		v := rec.GetVerticalSpeedScaled()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if first == nil {
			first = rec
		}

		var elapsed float64
		if opts.SampleRate > 0 {
			elapsed = float64(len(table.Rows)) / opts.SampleRate
		} else {
			elapsed = rec.Timestamp.Sub(first.Timestamp).Seconds()
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatFloat(elapsed, 'f', -1, 64),
			strconv.FormatFloat(v, 'f', -1, 64),
		})
	}
	if len(table.Rows) == 0 {
		return nil, ErrNoVerticalSpeed
	}
	return table, nil
}

// LoadVelocity decodes a FIT activity into a velocity attribute.
func LoadVelocity(r io.Reader, opts Options) (*cmjstats.Attribute, error) {
	table, err := Decode(r, opts)
	if err != nil {
		return nil, err
	}
	cols := opts.Columns
	if cols.Time == "" || cols.Velocity == "" {
		cols = cmjstats.DefaultVelocityColumns()
	}
	return cmjstats.LoadAttribute(table, cols.Columns())
}

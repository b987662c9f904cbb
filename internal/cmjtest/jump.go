// Package cmjtest builds synthetic countermovement-jump recordings for tests.
package cmjtest

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// Landmarks of the jump produced by CountermovementJump, as sample positions.
const (
	Samples         = 1900
	UnweightDetect  = 1100
	BrakeStart      = 1250
	PropulsionStart = 1400
	VelocityPeak    = 1519
	Takeoff         = 1550
	BodyWeightN     = 700.0
)

// Jump is a synthetic 1 kHz recording.
type Jump struct {
	Time     []float64
	Velocity []float64
	Force    []float64
}

// CountermovementJump returns a jump with quiet stance (700±2 N), a 150 ms
// unweighting dip, 150 ms of braking, a 150 ms propulsive push peaking at
// 2.4 m/s and a flight phase long enough for velocity to turn negative.
// A short positive velocity blip during quiet stance mimics sensor noise.
func CountermovementJump() Jump {
	j := Jump{
		Time:     make([]float64, Samples),
		Velocity: make([]float64, Samples),
		Force:    make([]float64, Samples),
	}
	for i := 0; i < Samples; i++ {
		j.Time[i] = float64(i) / 1000
		switch {
		case i < UnweightDetect:
			j.Force[i] = BodyWeightN - 2
			if i%2 == 0 {
				j.Force[i] = BodyWeightN + 2
			}
			if i >= 100 && i < 105 {
				j.Velocity[i] = 0.002
			}
		case i < BrakeStart:
			j.Force[i] = 300
			j.Velocity[i] = float64(-(i - UnweightDetect + 1)) / 100
		case i < PropulsionStart:
			j.Force[i] = 1400
			j.Velocity[i] = float64(-150+(i-BrakeStart+1)) / 100
		case i < Takeoff:
			j.Force[i] = 1400
			if i <= VelocityPeak {
				j.Velocity[i] = float64(2*(i-PropulsionStart+1)) / 100
			} else {
				j.Velocity[i] = 2.4 - float64(i-VelocityPeak)*0.005
			}
		default:
			j.Force[i] = 0
			j.Velocity[i] = 2.25 - float64(i-Takeoff+1)*0.00980665
		}
	}
	return j
}

// VelocityCSV renders the velocity source in the vendor layout.
func (j Jump) VelocityCSV() []byte {
	rows := [][]string{{"Time (s)", "Velocity (M/s)", "Displacement (m)"}}
	for i := range j.Time {
		rows = append(rows, []string{formatTime(j.Time[i]), formatFloat(j.Velocity[i]), "0"})
	}
	return encode(rows)
}

// ForceCSV renders the force source in the vendor layout. An extra trailing
// row with a time absent from the velocity source is included.
func (j Jump) ForceCSV() []byte {
	rows := [][]string{{"Time (s)", "Left (N)", "Right (N)", "Combined (N)"}}
	for i := range j.Time {
		half := formatFloat(j.Force[i] / 2)
		rows = append(rows, []string{formatTime(j.Time[i]), half, half, formatFloat(j.Force[i])})
	}
	rows = append(rows, []string{formatTime(float64(Samples) / 1000), "0", "0", "0"})
	return encode(rows)
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', 3, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func encode(rows [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(rows)
	return buf.Bytes()
}

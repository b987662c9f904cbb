// Package hawkin parses the file names produced by the force-platform vendor
// export and orders jumps by athlete and date.
package hawkin

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DateLayout is the US month_day_year layout used in exported file names.
const DateLayout = "01_02_2006"

var (
	// ErrNotCSV is returned for names without a .csv extension.
	ErrNotCSV = errors.New("not a csv file")
	// ErrMalformedName is returned when a name follows neither naming convention.
	ErrMalformedName = errors.New("malformed jump file name")
)

// Name identifies one exported jump.
type Name struct {
	First string    `json:"first_name"`
	Last  string    `json:"last_name"`
	Date  time.Time `json:"date"`
	// Key is the canonical "First_Last-MM_DD_YYYY.csv" name shared by the
	// force and velocity exports of the same jump.
	Key string `json:"key"`
}

// Athlete returns "First Last".
func (n Name) Athlete() string {
	return strings.TrimSpace(n.First + " " + n.Last)
}

func (n Name) String() string {
	return n.Key
}

// Parse accepts either the raw export name
//
//	Force-First_Last_Countermovement_Jump-MM_DD_YYYY_hh-mm-ss N.csv
//
// or the canonical key "First_Last-MM_DD_YYYY.csv". Directory components
// are ignored.
func Parse(filename string) (Name, error) {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".csv") {
		return Name{}, fmt.Errorf("%q: %w", base, ErrNotCSV)
	}
	stem := strings.TrimSuffix(base, ext)

	parts := strings.Split(stem, "-")
	var athletePart, datePart string
	switch {
	case len(parts) >= 3:
		// Vendor name: prefix, athlete and test, then date and time.
		athletePart, datePart = parts[1], parts[2]
	case len(parts) == 2:
		athletePart, datePart = parts[0], parts[1]
	default:
		return Name{}, fmt.Errorf("%q: %w", base, ErrMalformedName)
	}

	athlete := strings.Split(athletePart, "_")
	date := strings.Split(datePart, "_")
	if len(athlete) < 2 || len(date) < 3 || athlete[0] == "" || athlete[1] == "" {
		return Name{}, fmt.Errorf("%q: %w", base, ErrMalformedName)
	}
	dateText := strings.Join(date[:3], "_")
	parsed, err := time.Parse(DateLayout, dateText)
	if err != nil {
		return Name{}, fmt.Errorf("%q: date %q: %w", base, dateText, ErrMalformedName)
	}

	return Name{
		First: athlete[0],
		Last:  athlete[1],
		Date:  parsed,
		Key:   athlete[0] + "_" + athlete[1] + "-" + dateText + ".csv",
	}, nil
}

// Sort orders names by last name, then first name, then date. Names that
// compare equal keep their relative order.
func Sort(names []Name) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := names[i], names[j]
		if a.Last != b.Last {
			return a.Last < b.Last
		}
		if a.First != b.First {
			return a.First < b.First
		}
		return a.Date.Before(b.Date)
	})
}

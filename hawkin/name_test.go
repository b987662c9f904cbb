package hawkin

import (
	"errors"
	"testing"
	"time"
)

func TestParseVendorName(t *testing.T) {
	n, err := Parse("/data/force/Force-Robin_Volkmar_Countermovement_Jump-10_14_2020_07-00-26 2.csv")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if n.First != "Robin" || n.Last != "Volkmar" {
		t.Fatalf("unexpected athlete: %+v", n)
	}
	if !n.Date.Equal(time.Date(2020, time.October, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", n.Date)
	}
	if n.Key != "Robin_Volkmar-10_14_2020.csv" {
		t.Fatalf("unexpected key: %q", n.Key)
	}
	if n.Athlete() != "Robin Volkmar" {
		t.Fatalf("unexpected athlete name: %q", n.Athlete())
	}
}

func TestParseCanonicalKeyRoundTrips(t *testing.T) {
	n, err := Parse("Adam_Lewandowski-01_01_2021.csv")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	again, err := Parse(n.Key)
	if err != nil {
		t.Fatalf("Parse(key) error: %v", err)
	}
	if again != n {
		t.Fatalf("key did not round trip: %+v vs %+v", again, n)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		want error
	}{
		{"Force-Robin_Volkmar_Countermovement_Jump-10_14_2020.txt", ErrNotCSV},
		{"jump.csv", ErrMalformedName},
		{"Robin-10_14_2020.csv", ErrMalformedName},
		{"Robin_Volkmar-14_10_2020.csv", ErrMalformedName},
		{"Robin_Volkmar-10_14.csv", ErrMalformedName},
	}
	for _, c := range cases {
		if _, err := Parse(c.name); !errors.Is(err, c.want) {
			t.Fatalf("Parse(%q): expected %v, got %v", c.name, c.want, err)
		}
	}
}

func TestSortByLastFirstDate(t *testing.T) {
	keys := []string{
		"Robin_Volkmar-01_20_2021.csv",
		"Robin_Volkmar-12_20_2020.csv",
		"Robin_Volkmar-11_20_2020.csv",
		"Szymon_Karpecki-12_20_2020.csv",
		"Bartlomiej_Karpecki-12_20_2020.csv",
		"Adam_Lewandowski-01_01_2021.csv",
	}
	names := make([]Name, 0, len(keys))
	for _, k := range keys {
		n, err := Parse(k)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", k, err)
		}
		names = append(names, n)
	}
	Sort(names)

	want := []string{
		"Bartlomiej_Karpecki-12_20_2020.csv",
		"Szymon_Karpecki-12_20_2020.csv",
		"Adam_Lewandowski-01_01_2021.csv",
		"Robin_Volkmar-11_20_2020.csv",
		"Robin_Volkmar-12_20_2020.csv",
		"Robin_Volkmar-01_20_2021.csv",
	}
	for i, n := range names {
		if n.Key != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, n.Key, want[i])
		}
	}
}

func TestSortIsStable(t *testing.T) {
	a, _ := Parse("Force-Jane_Doe_Countermovement_Jump-03_04_2022_10-00-00 1.csv")
	b, _ := Parse("Force-Jane_Doe_Countermovement_Jump-03_04_2022_11-30-00 2.csv")
	a.Key, b.Key = "first", "second"
	names := []Name{a, b}
	Sort(names)
	if names[0].Key != "first" || names[1].Key != "second" {
		t.Fatalf("equal names were reordered: %v", names)
	}
}

package core

import (
	"testing"
	"time"
)

func TestMonthContains(t *testing.T) {
	m := Month{Year: 2024, Month: time.March}
	cases := []struct {
		t    time.Time
		want bool
	}{
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), true},
		{time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), false},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), false},
	}
	for i, tc := range cases {
		if got := m.Contains(tc.t); got != tc.want {
			t.Fatalf("case %d: Contains(%v) = %v", i, tc.t, got)
		}
	}
}

func TestNormalizeMonth(t *testing.T) {
	m, ok := NormalizeMonth(time.Date(2024, 3, 17, 13, 4, 0, 0, time.UTC))
	if !ok || m != (Month{Year: 2024, Month: time.March}) {
		t.Fatalf("unexpected month %v ok=%v", m, ok)
	}
	if got := m.First(time.UTC); got.Day() != 1 || got.Hour() != 0 {
		t.Fatalf("first of month = %v", got)
	}
	if _, ok := NormalizeMonth(time.Time{}); ok {
		t.Fatalf("zero time must not normalize")
	}
	if _, ok := NormalizeMonth(time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatalf("year 10000 must not normalize")
	}
}

func TestMonthAddDate(t *testing.T) {
	m := Month{Year: 2024, Month: time.December}
	if got := m.AddDate(0, 1); got != (Month{Year: 2025, Month: time.January}) {
		t.Fatalf("next month = %v", got)
	}
	if got := m.AddDate(-1, 0); got != (Month{Year: 2023, Month: time.December}) {
		t.Fatalf("previous year = %v", got)
	}
	if got := (Month{Year: 2024, Month: time.January}).AddDate(0, -1); got.String() != "2023-12" {
		t.Fatalf("previous month = %v", got)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	if err != nil || m != (Month{Year: 2024, Month: time.March}) {
		t.Fatalf("ParseMonth = %v, %v", m, err)
	}
	if _, err := ParseMonth("2024-13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestDayCompare(t *testing.T) {
	a := Day{2024, time.March, 1}
	b := Day{2024, time.March, 3}
	c := Day{2023, time.December, 31}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 || c.Compare(a) != -1 {
		t.Fatalf("unexpected ordering")
	}
	if a.String() != "2024-03-01" {
		t.Fatalf("String() = %s", a)
	}
}

package core

import (
	"fmt"
	"time"
)

// Day is a calendar day in the Gregorian calendar, independent of time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// Month is a calendar month. It is the home screen's selection unit.
type Month struct {
	Year  int
	Month time.Month
}

const (
	minYear = 1
	maxYear = 9999
)

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Midnight returns the start of the day in loc.
func (d Day) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Compare orders days chronologically: -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MonthOf returns the month containing t in t's own location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// NormalizeMonth returns the month of t. It fails for the zero time and for
// years the calendar arithmetic does not support.
func NormalizeMonth(t time.Time) (Month, bool) {
	if t.IsZero() {
		return Month{}, false
	}
	m := MonthOf(t)
	if !m.Valid() {
		return Month{}, false
	}
	return m, true
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) Valid() bool {
	return m.Year >= minYear && m.Year <= maxYear && m.Month >= time.January && m.Month <= time.December
}

// First returns midnight of the first day of the month in loc.
func (m Month) First(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Contains reports whether t, read in its own location, falls in m.
func (m Month) Contains(t time.Time) bool {
	y, mo, _ := t.Date()
	return y == m.Year && mo == m.Month
}

// ContainsDay reports whether d falls in m.
func (m Month) ContainsDay(d Day) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// AddDate shifts the month. Day overflow cannot happen since months are
// anchored on the 1st.
func (m Month) AddDate(years, months int) Month {
	return MonthOf(time.Date(m.Year+years, m.Month+time.Month(months), 1, 0, 0, 0, 0, time.UTC))
}

// WithMonth keeps the year and replaces the month.
func (m Month) WithMonth(month time.Month) Month {
	return Month{Year: m.Year, Month: month}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

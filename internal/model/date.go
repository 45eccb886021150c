package model

import (
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 day layout used in config, logs and reports.
const DateFormat = "2006-01-02"

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate returns midnight UTC of the given day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD day (single digit month/day accepted).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, err)
	}
	return t, nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// DateRange is an inclusive interval of calendar days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange builds a range with both bounds truncated to days.
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to)}
}

// Valid reports whether From is not after To.
func (r DateRange) Valid() bool { return !r.From.After(r.To) }

// Contains reports whether d lies in the range, bounds included.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.From) && !d.After(r.To)
}

// Days returns the number of calendar days in the range, 0 when invalid.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.From.Format(DateFormat) + ".." + r.To.Format(DateFormat)
}

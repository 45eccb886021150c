package asset

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the sampling period statistics are computed at.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// ParseFrequency accepts the long names and the pandas-style aliases
// (D, W, M/ME, Q/QE, Y/YE/A), case-insensitively. Empty means Daily.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "d", "daily":
		return Daily, nil
	case "w", "weekly":
		return Weekly, nil
	case "m", "me", "monthly":
		return Monthly, nil
	case "q", "qe", "quarterly":
		return Quarterly, nil
	case "y", "ye", "a", "yearly", "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidRange, s)
}

// PeriodsPerYear is the annualisation factor of f; ok is false for an unknown value.
func (f Frequency) PeriodsPerYear() (float64, bool) {
	switch f {
	case Daily:
		return 252, true
	case Weekly:
		return 52, true
	case Monthly:
		return 12, true
	case Quarterly:
		return 4, true
	case Yearly:
		return 1, true
	}
	return 0, false
}

// period returns a key identifying the sampling bucket of t.
func (f Frequency) period(t time.Time) int {
	switch f {
	case Weekly:
		y, w := t.ISOWeek()
		return y*100 + w
	case Monthly:
		return t.Year()*100 + int(t.Month())
	case Quarterly:
		return t.Year()*10 + (int(t.Month())-1)/3
	case Yearly:
		return t.Year()
	}
	return int(t.Unix() / (24 * 60 * 60))
}

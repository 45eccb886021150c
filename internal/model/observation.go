package model

import (
	"sort"
	"time"
)

// Instrument is one configured ticker. Label is only used for display.
type Instrument struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Label  string `yaml:"label" json:"label,omitempty"`
}

// DisplayName returns Label, or Symbol when no label is set.
func (i Instrument) DisplayName() string {
	if i.Label != "" {
		return i.Label
	}
	return i.Symbol
}

// Observation is one (date, price) point. Date is a UTC calendar day.
type Observation struct {
	Date  time.Time
	Price float64
}

// PriceSeries is ordered by strictly increasing Date. It only holds the days the
// provider returned, so consecutive entries are not necessarily consecutive days.
type PriceSeries []Observation

// First returns the oldest observation; ok is false for an empty series.
func (s PriceSeries) First() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[0], true
}

// Last returns the most recent observation; ok is false for an empty series.
func (s PriceSeries) Last() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

// Span returns [first date, last date]; ok is false for an empty series.
func (s PriceSeries) Span() (DateRange, bool) {
	if len(s) == 0 {
		return DateRange{}, false
	}
	return DateRange{From: s[0].Date, To: s[len(s)-1].Date}, true
}

// Between returns the sub-series with dates inside [from, to]. A zero bound is open.
// The returned slice shares memory with s.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	lo := 0
	if !from.IsZero() {
		from = Day(from)
		lo = sort.Search(len(s), func(i int) bool { return !s[i].Date.Before(from) })
	}
	hi := len(s)
	if !to.IsZero() {
		to = Day(to)
		hi = sort.Search(len(s), func(i int) bool { return s[i].Date.After(to) })
	}
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}

// Normalize returns a copy with dates truncated to UTC days, sorted, and with
// duplicate days collapsed (the later entry in s wins).
func Normalize(s PriceSeries) PriceSeries {
	if len(s) == 0 {
		return nil
	}
	out := make(PriceSeries, len(s))
	for i, o := range s {
		out[i] = Observation{Date: Day(o.Date), Price: o.Price}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	w := 0
	for i := range out {
		if w > 0 && out[w-1].Date.Equal(out[i].Date) {
			out[w-1] = out[i]
			continue
		}
		out[w] = out[i]
		w++
	}
	return out[:w]
}

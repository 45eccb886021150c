package cache

import (
	"sort"
	"time"

	"market-stats/internal/model"
)

// unionRanges sorts rs and merges ranges that overlap or touch (To+1 == From).
// Invalid ranges are dropped.
func unionRanges(rs []model.DateRange) []model.DateRange {
	valid := make([]model.DateRange, 0, len(rs))
	for _, r := range rs {
		r = model.NewDateRange(r.From, r.To)
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].From.Before(valid[j].From) })

	out := []model.DateRange{valid[0]}
	for _, r := range valid[1:] {
		last := &out[len(out)-1]
		if !r.From.After(last.To.AddDate(0, 0, 1)) {
			if r.To.After(last.To) {
				last.To = r.To
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// settledCoverage drops the trailing refreshDays days of the latest range. Those
// days are still subject to revision by the provider.
func settledCoverage(coverage []model.DateRange, refreshDays int) []model.DateRange {
	if len(coverage) == 0 || refreshDays <= 0 {
		return coverage
	}
	out := make([]model.DateRange, len(coverage))
	copy(out, coverage)
	last := &out[len(out)-1]
	last.To = last.To.AddDate(0, 0, -refreshDays)
	if !last.Valid() {
		out = out[:len(out)-1]
	}
	return out
}

// settledThrough returns the last day treated as immutable history.
func settledThrough(coverage []model.DateRange, refreshDays int) (time.Time, bool) {
	settled := settledCoverage(coverage, refreshDays)
	if len(settled) == 0 {
		return time.Time{}, false
	}
	return settled[len(settled)-1].To, true
}

// MissingRanges returns the ordered disjoint sub-ranges of [start, end] that are
// not in coverage, after applying the trailing-edge refresh rule.
// coverage must be sorted and disjoint, as returned by unionRanges.
func MissingRanges(coverage []model.DateRange, start, end time.Time, refreshDays int) []model.DateRange {
	want := model.NewDateRange(start, end)
	if !want.Valid() {
		return nil
	}

	var missing []model.DateRange
	cursor := want.From
	for _, c := range settledCoverage(coverage, refreshDays) {
		if c.To.Before(cursor) {
			continue
		}
		if c.From.After(want.To) {
			break
		}
		if c.From.After(cursor) {
			missing = append(missing, model.DateRange{From: cursor, To: c.From.AddDate(0, 0, -1)})
		}
		cursor = c.To.AddDate(0, 0, 1)
		if cursor.After(want.To) {
			return missing
		}
	}
	return append(missing, model.DateRange{From: cursor, To: want.To})
}

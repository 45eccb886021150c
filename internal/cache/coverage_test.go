package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"market-stats/internal/model"
)

func TestMissingRanges(t *testing.T) {
	tests := []struct {
		name     string
		coverage []model.DateRange
		start    string
		end      string
		refresh  int
		want     []model.DateRange
	}{
		{
			name:  "no cache",
			start: "2020-01-01", end: "2020-12-31",
			want: []model.DateRange{rng("2020-01-01", "2020-12-31")},
		},
		{
			name:     "trailing gap",
			coverage: []model.DateRange{rng("2020-01-01", "2020-06-30")},
			start:    "2020-01-01", end: "2020-12-31",
			want: []model.DateRange{rng("2020-07-01", "2020-12-31")},
		},
		{
			name:     "trailing gap with refresh",
			coverage: []model.DateRange{rng("2020-01-01", "2020-06-30")},
			start:    "2020-01-01", end: "2020-12-31", refresh: 1,
			want: []model.DateRange{rng("2020-06-30", "2020-12-31")},
		},
		{
			name:     "leading and trailing gaps",
			coverage: []model.DateRange{rng("2020-03-01", "2020-04-30")},
			start:    "2020-01-01", end: "2020-12-31",
			want: []model.DateRange{rng("2020-01-01", "2020-02-29"), rng("2020-05-01", "2020-12-31")},
		},
		{
			name:     "fully covered",
			coverage: []model.DateRange{rng("2019-01-01", "2021-01-01")},
			start:    "2020-01-01", end: "2020-12-31", refresh: 1,
			want: nil,
		},
		{
			name:     "only trailing day unsettled",
			coverage: []model.DateRange{rng("2020-01-01", "2020-12-31")},
			start:    "2020-01-01", end: "2020-12-31", refresh: 1,
			want: []model.DateRange{d("2020-12-31")},
		},
		{
			name:     "hole between ranges",
			coverage: []model.DateRange{rng("2020-01-01", "2020-01-31"), rng("2020-03-01", "2020-12-31")},
			start:    "2020-01-15", end: "2020-06-30", refresh: 1,
			want: []model.DateRange{rng("2020-02-01", "2020-02-29")},
		},
		{
			name:     "request before cache",
			coverage: []model.DateRange{rng("2021-01-01", "2021-06-30")},
			start:    "2020-01-01", end: "2020-03-31",
			want: []model.DateRange{rng("2020-01-01", "2020-03-31")},
		},
		{
			name:     "single day cache fully unsettled",
			coverage: []model.DateRange{d("2020-06-30")},
			start:    "2020-06-30", end: "2020-06-30", refresh: 1,
			want: []model.DateRange{d("2020-06-30")},
		},
		{
			name:  "inverted request",
			start: "2020-12-31", end: "2020-01-01",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingRanges(tt.coverage, model.MustParseDate(tt.start), model.MustParseDate(tt.end), tt.refresh)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnionRanges(t *testing.T) {
	got := unionRanges([]model.DateRange{
		rng("2020-03-01", "2020-03-31"),
		rng("2020-01-01", "2020-01-31"),
		rng("2020-02-01", "2020-02-10"), // touches January
		rng("2020-03-15", "2020-04-15"), // overlaps March
		rng("2020-12-31", "2020-01-01"), // invalid, dropped
	})
	assert.Equal(t, []model.DateRange{
		rng("2020-01-01", "2020-02-10"),
		rng("2020-03-01", "2020-04-15"),
	}, got)
}

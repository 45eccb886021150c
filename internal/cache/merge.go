package cache

import (
	"time"

	"market-stats/internal/model"
)

// Merge returns the sorted union of cached and fetched observations.
//
// On a date present in both, the fetched price replaces the cached one only when
// the date is after settled; settled history is never rewritten. A zero settled
// lets fetched values win everywhere.
func Merge(cached, fetched model.PriceSeries, settled time.Time) model.PriceSeries {
	cached = model.Normalize(cached)
	fetched = model.Normalize(fetched)

	out := make(model.PriceSeries, 0, len(cached)+len(fetched))
	i, j := 0, 0
	for i < len(cached) && j < len(fetched) {
		c, f := cached[i], fetched[j]
		switch {
		case c.Date.Before(f.Date):
			out = append(out, c)
			i++
		case f.Date.Before(c.Date):
			out = append(out, f)
			j++
		default:
			if !settled.IsZero() && !c.Date.After(settled) {
				out = append(out, c)
			} else {
				out = append(out, f)
			}
			i++
			j++
		}
	}
	out = append(out, cached[i:]...)
	out = append(out, fetched[j:]...)
	return out
}

package asset

import "market-stats/internal/model"

// Resample keeps the last observation of every period of f. Periods without an
// observation are skipped. Kept points retain their own observation date.
func Resample(s model.PriceSeries, f Frequency) model.PriceSeries {
	if len(s) == 0 {
		return nil
	}
	if f == Daily {
		return append(model.PriceSeries(nil), s...)
	}
	out := make(model.PriceSeries, 0, len(s))
	last := 0
	for i, o := range s {
		key := f.period(o.Date)
		if i > 0 && key == last {
			out[len(out)-1] = o
			continue
		}
		out = append(out, o)
		last = key
	}
	return out
}

package fetch

import (
	"fmt"
	"strings"

	"market-stats/internal/asset"
	"market-stats/internal/model"
)

// Diagnostic records one instrument whose fetch failed.
type Diagnostic struct {
	Symbol   string          `json:"symbol"`
	Range    model.DateRange `json:"date_range"`
	Reason   string          `json:"reason"`
	FellBack bool            `json:"fell_back"` // served from cache instead of being dropped
	Err      error           `json:"-"`
}

// Result is the outcome of LoadAssets. Assets and Diagnostics follow the order
// instruments were passed in.
type Result struct {
	Assets      []*asset.Asset
	Diagnostics []Diagnostic
}

// Lookup returns the asset loaded for symbol.
func (r *Result) Lookup(symbol string) (*asset.Asset, bool) {
	for _, a := range r.Assets {
		if a.Instrument.Symbol == symbol {
			return a, true
		}
	}
	return nil, false
}

// Symbols returns the symbols of the loaded assets.
func (r *Result) Symbols() []string {
	out := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		out[i] = a.Instrument.Symbol
	}
	return out
}

// Dropped returns the diagnostics of instruments missing from Assets.
func (r *Result) Dropped() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if !d.FellBack {
			out = append(out, d)
		}
	}
	return out
}

func joinFailedReasons(diags []Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	var b strings.Builder
	for i, d := range diags {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.Symbol)
		b.WriteString(": ")
		b.WriteString(d.Reason)
		if i >= 4 && len(diags) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(diags)-5))
			break
		}
	}
	return b.String()
}

package asset

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"market-stats/internal/model"
)

// ErrInvalidRange is returned for a statistics request that cannot be served.
var ErrInvalidRange = errors.New("invalid range")

// Asset is one instrument with its merged price series.
type Asset struct {
	Instrument model.Instrument
	Series     model.PriceSeries
}

// New returns an Asset over a normalised copy of series.
func New(inst model.Instrument, series model.PriceSeries) *Asset {
	return &Asset{Instrument: inst, Series: model.Normalize(series)}
}

// Symbol returns the instrument symbol.
func (a *Asset) Symbol() string { return a.Instrument.Symbol }

// StatsRequest selects the sub-range and sampling of a ComputeStats call.
type StatsRequest struct {
	Start, End    time.Time // zero = unbounded
	Frequency     Frequency // empty = Daily
	RollingWindow int       // periods; 0 disables rolling series
	RiskFreeRate  float64   // annual
	Lag           int       // autocorrelation lag; 0 = 1
	LogReturns    bool
}

// Point is one value of a time-indexed metric.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MetricResult holds the statistics of one Asset over one request.
// Scalars are NaN when there is not enough data.
type MetricResult struct {
	Symbol       string
	Label        string
	Frequency    Frequency
	Start, End   time.Time
	Observations int

	StartPrice  float64
	EndPrice    float64
	TotalReturn float64
	CAGR        float64
	Volatility  float64
	MaxDrawdown float64

	Lag             int
	Autocorrelation float64
	AutocorrDaily   float64
	AutocorrMonthly float64
	AutocorrYearly  float64

	CumulativeReturn  []Point
	Drawdown          []Point
	RollingVolatility []Point
	RollingSharpe     []Point
}

// Sufficient reports whether the range held at least two observations.
func (r MetricResult) Sufficient() bool { return r.Observations >= 2 }

// LogValue implements slog.LogValuer.
func (r MetricResult) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("symbol", r.Symbol),
		slog.String("frequency", string(r.Frequency)),
		slog.Int("observations", r.Observations),
	}
	if !r.Sufficient() {
		return slog.GroupValue(append(attrs, slog.Bool("insufficient", true))...)
	}
	attrs = append(attrs,
		slog.String("period", model.NewDateRange(r.Start, r.End).String()),
		slog.String("start_price", fmt.Sprintf("%.2f", r.StartPrice)),
		slog.String("end_price", fmt.Sprintf("%.2f", r.EndPrice)),
		slog.String("total_return", pct(r.TotalReturn)),
		slog.String("cagr", pct(r.CAGR)),
		slog.String("volatility", pct(r.Volatility)),
		slog.String("max_drawdown", pct(r.MaxDrawdown)),
		slog.String("autocorr_daily", fmt.Sprintf("%.4f", r.AutocorrDaily)),
		slog.String("autocorr_monthly", fmt.Sprintf("%.4f", r.AutocorrMonthly)),
		slog.String("autocorr_yearly", fmt.Sprintf("%.4f", r.AutocorrYearly)),
	)
	return slog.GroupValue(attrs...)
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }

// ComputeStats computes the statistics of a over req. The range is clipped to
// the series; fewer than two observations in it yields NaN scalars and empty
// sequences. Only a malformed request returns an error.
func (a *Asset) ComputeStats(req StatsRequest) (MetricResult, error) {
	if !req.Start.IsZero() && !req.End.IsZero() && model.Day(req.Start).After(model.Day(req.End)) {
		return MetricResult{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange,
			req.Start.Format(model.DateFormat), req.End.Format(model.DateFormat))
	}
	if req.RollingWindow < 0 {
		return MetricResult{}, fmt.Errorf("%w: negative rolling window %d", ErrInvalidRange, req.RollingWindow)
	}
	if req.Lag < 0 {
		return MetricResult{}, fmt.Errorf("%w: negative lag %d", ErrInvalidRange, req.Lag)
	}
	freq := req.Frequency
	if freq == "" {
		freq = Daily
	}
	ppy, ok := freq.PeriodsPerYear()
	if !ok {
		return MetricResult{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRange, freq)
	}
	lag := req.Lag
	if lag == 0 {
		lag = 1
	}

	nan := math.NaN()
	res := MetricResult{
		Symbol:          a.Instrument.Symbol,
		Label:           a.Instrument.DisplayName(),
		Frequency:       freq,
		Lag:             lag,
		StartPrice:      nan,
		EndPrice:        nan,
		TotalReturn:     nan,
		CAGR:            nan,
		Volatility:      nan,
		MaxDrawdown:     nan,
		Autocorrelation: nan,
		AutocorrDaily:   nan,
		AutocorrMonthly: nan,
		AutocorrYearly:  nan,
	}

	clipped := a.Series.Between(req.Start, req.End)
	sampled := Resample(clipped, freq)
	res.Observations = len(sampled)
	if len(sampled) > 0 {
		res.Start = sampled[0].Date
		res.End = sampled[len(sampled)-1].Date
	}
	if len(sampled) < 2 {
		return res, nil
	}

	prices := pricesOf(sampled)
	returns := Returns(prices, req.LogReturns)

	res.StartPrice = prices[0]
	res.EndPrice = prices[len(prices)-1]
	res.TotalReturn = TotalReturn(prices)
	res.CAGR = CAGR(res.StartPrice, res.EndPrice, res.End.Sub(res.Start).Hours()/24)
	res.Volatility = Volatility(returns, ppy)
	res.MaxDrawdown = MaxDrawdown(prices)
	res.Autocorrelation = Autocorrelation(returns, lag)
	res.AutocorrDaily = autocorrAt(clipped, Daily, req.LogReturns)
	res.AutocorrMonthly = autocorrAt(clipped, Monthly, req.LogReturns)
	res.AutocorrYearly = autocorrAt(clipped, Yearly, req.LogReturns)

	dd := Drawdowns(prices)
	res.CumulativeReturn = make([]Point, len(sampled))
	res.Drawdown = make([]Point, len(sampled))
	for i, o := range sampled {
		res.CumulativeReturn[i] = Point{Date: o.Date, Value: o.Price/prices[0] - 1}
		res.Drawdown[i] = Point{Date: o.Date, Value: dd[i]}
	}

	if req.RollingWindow > 0 {
		// returns[j] is dated at sampled[j+1]; a window ending at returns[j] is
		// dated there too.
		res.RollingVolatility = datedWindows(sampled, RollingVolatility(returns, req.RollingWindow, ppy), req.RollingWindow)
		res.RollingSharpe = datedWindows(sampled, RollingSharpe(returns, req.RollingWindow, ppy, req.RiskFreeRate), req.RollingWindow)
	}
	return res, nil
}

func pricesOf(s model.PriceSeries) []float64 {
	out := make([]float64, len(s))
	for i, o := range s {
		out[i] = o.Price
	}
	return out
}

// autocorrAt is the lag-1 autocorrelation of s resampled at f.
func autocorrAt(s model.PriceSeries, f Frequency, logReturns bool) float64 {
	return Autocorrelation(Returns(pricesOf(Resample(s, f)), logReturns), 1)
}

func datedWindows(sampled model.PriceSeries, values []float64, window int) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Date: sampled[i+window].Date, Value: v}
	}
	return out
}

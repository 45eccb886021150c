package asset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-stats/internal/model"
)

func d(s string) time.Time { return model.MustParseDate(s) }

func series(pairs ...any) model.PriceSeries {
	var s model.PriceSeries
	for i := 0; i < len(pairs); i += 2 {
		s = append(s, model.Observation{Date: d(pairs[i].(string)), Price: pairs[i+1].(float64)})
	}
	return s
}

func TestResampleKeepsLastObservationPerPeriod(t *testing.T) {
	s := series(
		"2024-01-02", 1.0, "2024-01-31", 2.0,
		"2024-02-15", 3.0,
		// March missing
		"2024-04-01", 4.0, "2024-04-30", 5.0,
	)
	got := Resample(s, Monthly)
	require.Len(t, got, 3)
	assert.Equal(t, d("2024-01-31"), got[0].Date)
	assert.Equal(t, 2.0, got[0].Price)
	assert.Equal(t, d("2024-02-15"), got[1].Date)
	assert.Equal(t, d("2024-04-30"), got[2].Date)

	assert.Len(t, Resample(s, Quarterly), 2)
	assert.Len(t, Resample(s, Yearly), 1)
	assert.Equal(t, s, Resample(s, Daily))
}

func TestResampleWeeklyUsesISOWeeks(t *testing.T) {
	// 2024-12-30 (Mon) and 2025-01-03 (Fri) are both in ISO week 2025-W01.
	s := series("2024-12-27", 1.0, "2024-12-30", 2.0, "2025-01-03", 3.0, "2025-01-06", 4.0)
	got := Resample(s, Weekly)
	require.Len(t, got, 3)
	assert.Equal(t, d("2024-12-27"), got[0].Date)
	assert.Equal(t, d("2025-01-03"), got[1].Date)
	assert.Equal(t, d("2025-01-06"), got[2].Date)
}

func TestParseFrequency(t *testing.T) {
	for in, want := range map[string]Frequency{
		"": Daily, "D": Daily, "weekly": Weekly, "ME": Monthly, "q": Quarterly, "YE": Yearly, "Yearly": Yearly,
	} {
		got, err := ParseFrequency(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFrequency("hourly")
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestComputeStatsDaily(t *testing.T) {
	a := New(model.Instrument{Symbol: "TST", Label: "Test"},
		series("2020-01-01", 100.0, "2020-01-02", 120.0, "2020-01-03", 90.0, "2020-01-06", 150.0, "2020-01-07", 60.0))

	res, err := a.ComputeStats(StatsRequest{RollingWindow: 2})
	require.NoError(t, err)

	assert.Equal(t, "Test", res.Label)
	assert.Equal(t, Daily, res.Frequency)
	assert.Equal(t, 5, res.Observations)
	assert.Equal(t, d("2020-01-01"), res.Start)
	assert.Equal(t, d("2020-01-07"), res.End)
	assert.Equal(t, 100.0, res.StartPrice)
	assert.Equal(t, 60.0, res.EndPrice)
	assert.InDelta(t, -0.4, res.TotalReturn, 1e-12)
	assert.InDelta(t, -0.6, res.MaxDrawdown, 1e-12)
	assert.InDelta(t, CAGR(100, 60, 6), res.CAGR, 1e-12)

	returns := Returns([]float64{100, 120, 90, 150, 60}, false)
	assert.InDelta(t, StdDev(returns)*math.Sqrt(252), res.Volatility, 1e-12)
	assert.InDelta(t, Autocorrelation(returns, 1), res.Autocorrelation, 1e-12)
	assert.InDelta(t, res.Autocorrelation, res.AutocorrDaily, 1e-12)
	assert.True(t, math.IsNaN(res.AutocorrMonthly))

	require.Len(t, res.CumulativeReturn, 5)
	assert.InDelta(t, 0.5, res.CumulativeReturn[3].Value, 1e-12)
	require.Len(t, res.Drawdown, 5)
	assert.InDelta(t, -0.25, res.Drawdown[2].Value, 1e-12)

	// 4 returns, window 2 => 3 points, the first dated at the third observation.
	require.Len(t, res.RollingVolatility, 3)
	assert.Equal(t, d("2020-01-03"), res.RollingVolatility[0].Date)
	assert.Equal(t, d("2020-01-07"), res.RollingVolatility[2].Date)
	require.Len(t, res.RollingSharpe, 3)
}

func TestComputeStatsSubRangeAndMonthly(t *testing.T) {
	a := New(model.Instrument{Symbol: "M"}, series(
		"2021-01-04", 10.0, "2021-01-29", 11.0,
		"2021-02-26", 12.0, "2021-03-31", 9.0,
		"2021-04-30", 15.0, "2021-05-28", 16.0,
	))
	res, err := a.ComputeStats(StatsRequest{Start: d("2021-01-15"), End: d("2021-04-30"), Frequency: Monthly})
	require.NoError(t, err)
	assert.Equal(t, "M", res.Label)
	assert.Equal(t, 4, res.Observations)
	assert.Equal(t, d("2021-01-29"), res.Start)
	assert.Equal(t, d("2021-04-30"), res.End)
	assert.InDelta(t, 15.0/11-1, res.TotalReturn, 1e-12)
	assert.InDelta(t, StdDev(Returns([]float64{11, 12, 9, 15}, false))*math.Sqrt(12), res.Volatility, 1e-12)
	assert.Empty(t, res.RollingVolatility)
}

func TestComputeStatsInsufficientData(t *testing.T) {
	a := New(model.Instrument{Symbol: "X"}, series("2020-01-01", 100.0, "2020-01-02", 101.0))

	for name, req := range map[string]StatsRequest{
		"single observation": {Start: d("2020-01-02"), End: d("2020-01-10")},
		"outside data":       {Start: d("2021-01-01"), End: d("2021-12-31")},
		"one month":          {Frequency: Monthly},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := a.ComputeStats(req)
			require.NoError(t, err)
			assert.False(t, res.Sufficient())
			for _, v := range []float64{res.StartPrice, res.EndPrice, res.TotalReturn, res.CAGR,
				res.Volatility, res.MaxDrawdown, res.Autocorrelation, res.AutocorrDaily} {
				assert.True(t, math.IsNaN(v))
			}
			assert.Empty(t, res.CumulativeReturn)
			assert.Empty(t, res.RollingSharpe)
		})
	}

	res, err := New(model.Instrument{Symbol: "E"}, nil).ComputeStats(StatsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Observations)
}

func TestComputeStatsRejectsInvalidRequests(t *testing.T) {
	a := New(model.Instrument{Symbol: "X"}, series("2020-01-01", 100.0, "2020-01-02", 101.0))
	for name, req := range map[string]StatsRequest{
		"start after end": {Start: d("2020-02-01"), End: d("2020-01-01")},
		"negative window": {RollingWindow: -1},
		"negative lag":    {Lag: -2},
		"unknown freq":    {Frequency: "hourly"},
	} {
		_, err := a.ComputeStats(req)
		assert.ErrorIs(t, err, ErrInvalidRange, name)
	}
}

func TestComputeStatsLogReturns(t *testing.T) {
	a := New(model.Instrument{Symbol: "L"}, series("2020-01-01", 1.0, "2020-01-02", 2.0, "2020-01-03", 1.0, "2020-01-06", 2.0))
	res, err := a.ComputeStats(StatsRequest{LogReturns: true})
	require.NoError(t, err)
	assert.InDelta(t, StdDev([]float64{math.Log(2), -math.Log(2), math.Log(2)})*math.Sqrt(252), res.Volatility, 1e-12)
	assert.InDelta(t, 1.0, res.TotalReturn, 1e-12)
}

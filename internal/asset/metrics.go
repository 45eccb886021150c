package asset

import "math"

// DaysPerYear is the year length used by CAGR.
const DaysPerYear = 365.25

// TotalReturn is last/first - 1.
func TotalReturn(prices []float64) float64 {
	if len(prices) < 2 || prices[0] == 0 {
		return math.NaN()
	}
	return prices[len(prices)-1]/prices[0] - 1
}

// CAGR is the compound annual growth rate from first to last over elapsedDays
// calendar days. NaN when elapsedDays <= 0 or first <= 0.
func CAGR(first, last, elapsedDays float64) float64 {
	if elapsedDays <= 0 || first <= 0 {
		return math.NaN()
	}
	return math.Pow(last/first, DaysPerYear/elapsedDays) - 1
}

// Returns computes the period-over-period returns of prices, simple or log.
func Returns(prices []float64, logReturns bool) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if logReturns {
			out[i-1] = math.Log(prices[i] / prices[i-1])
		} else {
			out[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return out
}

// Mean is the arithmetic mean; NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the sample standard deviation (n-1 denominator); NaN below 2 values.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// Volatility annualises the standard deviation of returns by sqrt(periodsPerYear).
func Volatility(returns []float64, periodsPerYear float64) float64 {
	return StdDev(returns) * math.Sqrt(periodsPerYear)
}

// Drawdowns returns price/running max - 1 for every price.
func Drawdowns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	peak := math.Inf(-1)
	for i, p := range prices {
		if p > peak {
			peak = p
		}
		out[i] = p/peak - 1
	}
	return out
}

// MaxDrawdown is the minimum of Drawdowns, a value <= 0. NaN for no prices.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return math.NaN()
	}
	worst := 0.0
	for _, d := range Drawdowns(prices) {
		worst = math.Min(worst, d)
	}
	return worst
}

// Autocorrelation is the Pearson correlation of returns with itself shifted by
// lag periods. NaN with fewer than lag+2 returns or zero variance.
func Autocorrelation(returns []float64, lag int) float64 {
	if lag < 1 || len(returns) < lag+2 {
		return math.NaN()
	}
	return pearson(returns[lag:], returns[:len(returns)-lag])
}

func pearson(x, y []float64) float64 {
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// RollingVolatility returns the annualised volatility of every full window of
// returns. Element i covers returns[i : i+window].
func RollingVolatility(returns []float64, window int, periodsPerYear float64) []float64 {
	if window < 1 || len(returns) < window {
		return nil
	}
	out := make([]float64, 0, len(returns)-window+1)
	for i := 0; i+window <= len(returns); i++ {
		out = append(out, Volatility(returns[i:i+window], periodsPerYear))
	}
	return out
}

// RollingSharpe returns (mean - rf/periodsPerYear) / std * sqrt(periodsPerYear)
// for every full window of returns. riskFree is an annual rate.
func RollingSharpe(returns []float64, window int, periodsPerYear, riskFree float64) []float64 {
	if window < 1 || len(returns) < window {
		return nil
	}
	rfPeriod := riskFree / periodsPerYear
	out := make([]float64, 0, len(returns)-window+1)
	for i := 0; i+window <= len(returns); i++ {
		w := returns[i : i+window]
		sd := StdDev(w)
		if sd == 0 || math.IsNaN(sd) {
			out = append(out, math.NaN())
			continue
		}
		out = append(out, (Mean(w)-rfPeriod)/sd*math.Sqrt(periodsPerYear))
	}
	return out
}

package technical

import (
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
)

// Observation lookbacks for trend detection. Daily rate series use roughly
// one trading month; monthly series use one observation.
const (
	dailyTrendLookback   = 21
	monthlyTrendLookback = 1

	// yoyLookback is twelve monthly observations for year-over-year change.
	yoyLookback = 12
)

// trendEpsilon treats sub-microscopic changes as flat.
const trendEpsilon = 1e-9

func trendSign(delta float64) int {
	switch {
	case delta > trendEpsilon:
		return contracts.TrendUp
	case delta < -trendEpsilon:
		return contracts.TrendDown
	default:
		return contracts.TrendFlat
	}
}

// ComputeMacro derives macro features from the raw indicator series. Any
// series may be empty; its fields stay nil and its trend stays flat.
func ComputeMacro(country string, policyRate, longTermRate, cpi contracts.TimeSeries) contracts.MacroFeatures {
	feat := contracts.MacroFeatures{Country: country}

	if latest, ok := policyRate.Latest(); ok {
		v := latest.Close
		feat.PolicyRate = &v
		feat.PolicyRateTrend = seriesTrend(policyRate, dailyTrendLookback)
		feat.AsOf = laterOf(feat.AsOf, latest.Date)
	}

	if latest, ok := longTermRate.Latest(); ok {
		v := latest.Close
		feat.LongTermRate = &v
		feat.AsOf = laterOf(feat.AsOf, latest.Date)
	}

	if yoy, ok := cpiYoY(cpi, 0); ok {
		feat.CPIYoY = &yoy
		feat.AsOf = laterOf(feat.AsOf, cpi.Points[cpi.Len()-1].Date)

		if prev, okPrev := cpiYoY(cpi, monthlyTrendLookback); okPrev {
			feat.CPITrend = trendSign(yoy - prev)
		}
	}

	return feat
}

// ComputeValuation derives valuation features from a PER series.
func ComputeValuation(country string, per contracts.TimeSeries) contracts.ValuationFeatures {
	feat := contracts.ValuationFeatures{Country: country}

	latest, ok := per.Latest()
	if !ok {
		return feat
	}

	v := latest.Close
	feat.PER = &v
	feat.AsOf = latest.Date
	feat.PERTrend = seriesTrend(per, monthlyTrendLookback)

	return feat
}

// cpiYoY computes the year-over-year CPI change in percent, offset
// observations back from the latest. A monthly index needs thirteen
// observations for the latest YoY figure.
func cpiYoY(cpi contracts.TimeSeries, offset int) (float64, bool) {
	n := cpi.Len()
	latestIdx := n - 1 - offset
	baseIdx := latestIdx - yoyLookback
	if latestIdx < 0 || baseIdx < 0 {
		return 0, false
	}

	base := cpi.Points[baseIdx].Close
	if base == 0 {
		return 0, false
	}

	return (cpi.Points[latestIdx].Close/base - 1) * 100, true
}

// seriesTrend compares the latest value against the value lookback
// observations earlier.
func seriesTrend(series contracts.TimeSeries, lookback int) int {
	n := series.Len()
	if n <= lookback {
		return contracts.TrendFlat
	}
	return trendSign(series.Points[n-1].Close - series.Points[n-1-lookback].Close)
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

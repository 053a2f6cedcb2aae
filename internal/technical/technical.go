package technical

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/marketbrief/internal/contracts"
)

// Moving average windows in trading days.
const (
	maShortWindow  = 20
	maMediumWindow = 75
	maLongWindow   = 200

	volWindow    = 20
	volumeWindow = 30

	// Trading days per year, for annualizing daily volatility.
	tradingDaysPerYear = 252
)

// Annualized volatility bucket boundaries.
const (
	volLowMax  = 0.15
	volHighMin = 0.25
)

// ComputeFeatures derives technical indicators from a daily price series.
// Indicators whose window exceeds the series length come back nil rather
// than zero.
func ComputeFeatures(series contracts.TimeSeries) (contracts.TechnicalFeatures, error) {
	latest, ok := series.Latest()
	if !ok {
		return contracts.TechnicalFeatures{}, fmt.Errorf("series %s is empty", series.Symbol)
	}

	closes := series.Closes()

	feat := contracts.TechnicalFeatures{
		Symbol: series.Symbol,
		AsOf:   latest.Date,
		Close:  latest.Close,
	}

	feat.MA20 = lastSMA(closes, maShortWindow)
	feat.MA75 = lastSMA(closes, maMediumWindow)
	feat.MA200 = lastSMA(closes, maLongWindow)

	if feat.MA75 != nil {
		feat.TrendDirection = sign(latest.Close - *feat.MA75)
	}

	if feat.MA200 != nil && *feat.MA200 != 0 {
		pct := (latest.Close - *feat.MA200) / *feat.MA200 * 100
		feat.PriceVsMA200Pct = &pct
	}

	feat.Volatility = annualizedVolatility(closes)
	feat.VolatilityBucket = bucketVolatility(feat.Volatility)

	feat.VolumeRatio = volumeRatio(series)

	return feat, nil
}

// lastSMA returns the latest simple moving average for the window, or nil
// when the series is too short.
func lastSMA(closes []float64, window int) *float64 {
	if len(closes) < window {
		return nil
	}
	sma := talib.Sma(closes, window)
	v := sma[len(sma)-1]
	return &v
}

// annualizedVolatility computes the standard deviation of daily returns
// over the trailing window, scaled to a yearly figure. Returns zero when
// the series is too short.
func annualizedVolatility(closes []float64) float64 {
	if len(closes) < volWindow+1 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}

	stddev := talib.StdDev(returns, volWindow, 1.0)
	daily := stddev[len(stddev)-1]
	return daily * math.Sqrt(tradingDaysPerYear)
}

func bucketVolatility(annualized float64) contracts.VolatilityBucket {
	switch {
	case annualized < volLowMax:
		return contracts.VolatilityLow
	case annualized > volHighMin:
		return contracts.VolatilityHigh
	default:
		return contracts.VolatilityMedium
	}
}

// volumeRatio compares the latest volume to the trailing average. Returns
// zero when volume data is absent.
func volumeRatio(series contracts.TimeSeries) float64 {
	volumes := series.Volumes()
	if len(volumes) < 2 {
		return 0
	}

	window := volumeWindow
	if len(volumes) < window {
		window = len(volumes)
	}

	recent := volumes[len(volumes)-window:]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	avg := sum / float64(window)
	if avg == 0 {
		return 0
	}

	return volumes[len(volumes)-1] / avg
}

func sign(x float64) int {
	switch {
	case x > 0:
		return contracts.TrendUp
	case x < 0:
		return contracts.TrendDown
	default:
		return contracts.TrendFlat
	}
}

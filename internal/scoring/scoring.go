package scoring

import (
	"math"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/reportconfig"
)

// Signal names as they appear in the thinking log.
const (
	SignalTrend         = "trend"
	SignalMA200Distance = "ma200_distance"
	SignalVolume        = "volume"
	SignalPolicyRate    = "policy_rate"
	SignalCPI           = "cpi"
	SignalValuation     = "valuation"
)

// ma200SaturationPct is the distance from MA200, in percent, at which the
// distance signal saturates.
const ma200SaturationPct = 10.0

// Compute produces the five-level score for one market and timeframe.
// Each signal lands in [-2, +2]; the weighted sum is rounded half away
// from zero and clamped to the same range. Missing inputs contribute a
// neutral zero without renormalizing the remaining weights.
func Compute(country, timeframe string, weights reportconfig.Weights, tech contracts.TechnicalFeatures, macro *contracts.MacroFeatures, valuation *contracts.ValuationFeatures) contracts.Score {
	inputs := []contracts.WeightedInput{
		weighted(SignalTrend, trendSignal(tech), weights.Trend, false),
		weighted(SignalMA200Distance, ma200Signal(tech), weights.MA200Distance, tech.PriceVsMA200Pct == nil),
		weighted(SignalVolume, volumeSignal(tech), weights.Volume, false),
	}

	if macro != nil {
		inputs = append(inputs,
			weighted(SignalPolicyRate, policyRateSignal(*macro), weights.PolicyRate, macro.PolicyRate == nil),
			weighted(SignalCPI, cpiSignal(*macro), weights.CPI, macro.CPIYoY == nil),
		)
	} else {
		inputs = append(inputs,
			weighted(SignalPolicyRate, 0, weights.PolicyRate, true),
			weighted(SignalCPI, 0, weights.CPI, true),
		)
	}

	if valuation != nil && valuation.PER != nil {
		inputs = append(inputs, weighted(SignalValuation, valuationSignal(*valuation), weights.Valuation, false))
	} else {
		inputs = append(inputs, weighted(SignalValuation, 0, weights.Valuation, true))
	}

	var raw float64
	for _, in := range inputs {
		raw += in.Contribution
	}

	return contracts.Score{
		Country:   country,
		Timeframe: timeframe,
		Level:     levelFromRaw(raw),
		Raw:       raw,
		Inputs:    inputs,
	}
}

func weighted(name string, signal, weight float64, missing bool) contracts.WeightedInput {
	if missing {
		signal = 0
	}
	return contracts.WeightedInput{
		Name:         name,
		Signal:       signal,
		Weight:       weight,
		Contribution: signal * weight,
		Missing:      missing,
	}
}

// levelFromRaw rounds half away from zero and clamps to the valid range.
func levelFromRaw(raw float64) contracts.ScoreLevel {
	rounded := math.Round(raw)
	if rounded > 2 {
		rounded = 2
	}
	if rounded < -2 {
		rounded = -2
	}
	return contracts.ScoreLevel(int(rounded))
}

// trendSignal maps the MA75 trend direction to a full-strength signal.
func trendSignal(tech contracts.TechnicalFeatures) float64 {
	return float64(tech.TrendDirection) * 2
}

// ma200Signal scales the percentage distance from MA200, saturating at
// +-ma200SaturationPct.
func ma200Signal(tech contracts.TechnicalFeatures) float64 {
	if tech.PriceVsMA200Pct == nil {
		return 0
	}
	return clamp(*tech.PriceVsMA200Pct/ma200SaturationPct*2, -2, 2)
}

// volumeSignal treats above-average volume as confirmation of the prevailing
// trend. Without a trend, volume alone says nothing about direction.
func volumeSignal(tech contracts.TechnicalFeatures) float64 {
	if tech.TrendDirection == contracts.TrendFlat || tech.VolumeRatio <= 0 {
		return 0
	}
	strength := clamp((tech.VolumeRatio-1)*2, 0, 2)
	return float64(tech.TrendDirection) * strength
}

// policyRateSignal reads rising policy rates as bearish.
func policyRateSignal(macro contracts.MacroFeatures) float64 {
	return float64(-macro.PolicyRateTrend) * 2
}

// cpiSignal reads accelerating inflation as bearish.
func cpiSignal(macro contracts.MacroFeatures) float64 {
	return float64(-macro.CPITrend) * 2
}

// valuationSignal reads an expanding earnings multiple as bearish.
func valuationSignal(val contracts.ValuationFeatures) float64 {
	return float64(-val.PERTrend) * 2
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

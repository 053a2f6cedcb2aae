package contracts

import "time"

// Trend direction values shared by technical and macro features.
const (
	TrendDown = -1
	TrendFlat = 0
	TrendUp   = 1
)

// VolatilityBucket is a discretization of trailing return volatility.
type VolatilityBucket string

const (
	VolatilityLow    VolatilityBucket = "low"
	VolatilityMedium VolatilityBucket = "medium"
	VolatilityHigh   VolatilityBucket = "high"
)

// TechnicalFeatures holds derived technical indicators for one symbol as of
// one date. Moving averages are nil when the series is shorter than the
// window; absent is not zero.
type TechnicalFeatures struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
	Close  float64   `json:"close"`

	MA20  *float64 `json:"ma20,omitempty"`
	MA75  *float64 `json:"ma75,omitempty"`
	MA200 *float64 `json:"ma200,omitempty"`

	// TrendDirection is the sign of (latest close - MA75); flat when MA75
	// is absent.
	TrendDirection int `json:"trend_direction"`

	// Volatility is the annualized standard deviation of daily returns over
	// the trailing window.
	Volatility       float64          `json:"volatility"`
	VolatilityBucket VolatilityBucket `json:"volatility_bucket"`

	// VolumeRatio is latest volume over the trailing 30-day average.
	VolumeRatio float64 `json:"volume_ratio,omitempty"`

	// PriceVsMA200Pct is the percentage distance of the latest close from
	// MA200, nil when MA200 is absent.
	PriceVsMA200Pct *float64 `json:"price_vs_ma200_pct,omitempty"`
}

// MacroFeatures holds macro indicators for one country as of one date.
// The whole record is optional in a report entry; individual fields are nil
// when the underlying series could not be fetched.
type MacroFeatures struct {
	Country string    `json:"country"`
	AsOf    time.Time `json:"as_of"`

	PolicyRate   *float64 `json:"policy_rate,omitempty"`
	LongTermRate *float64 `json:"long_term_rate,omitempty"`
	CPIYoY       *float64 `json:"cpi_yoy,omitempty"`

	// Trends compare the latest value against the value one observation
	// window earlier: -1 falling, 0 flat, +1 rising.
	PolicyRateTrend int `json:"policy_rate_trend"`
	CPITrend        int `json:"cpi_trend"`
}

// ValuationFeatures holds the index-level earnings multiple for one country.
// Optional like MacroFeatures.
type ValuationFeatures struct {
	Country string    `json:"country"`
	AsOf    time.Time `json:"as_of"`

	PER      *float64 `json:"per,omitempty"`
	PERTrend int      `json:"per_trend"`
}

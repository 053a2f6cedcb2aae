package reportconfig

// Config is the full report generation configuration. Loaded from YAML with
// strict field checking so a typo fails at startup instead of silently
// dropping a weight.
type Config struct {
	Meta       Meta        `yaml:"meta" json:"meta"`
	Markets    []Market    `yaml:"markets" json:"markets"`
	Timeframes []Timeframe `yaml:"timeframes" json:"timeframes"`
	Narration  Narration   `yaml:"narration" json:"narration"`
	LLM        LLM         `yaml:"llm" json:"llm"`
	Fallback   Fallback    `yaml:"fallback" json:"fallback"`
	Scheduler  Scheduler   `yaml:"scheduler" json:"scheduler"`
}

// Meta identifies the report configuration.
type Meta struct {
	ReportID string `yaml:"report_id" json:"report_id"`
	Version  string `yaml:"version" json:"version"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Market is one country to analyze: its index price series plus the macro
// series behind it. Empty FRED series IDs mean the indicator is not
// available for that country.
type Market struct {
	Country     string `yaml:"country" json:"country"`
	IndexSymbol string `yaml:"index_symbol" json:"index_symbol"`
	FRED        FRED   `yaml:"fred" json:"fred"`

	// ValuationSource selects the index PER provider ("multpl" or "").
	ValuationSource string `yaml:"valuation_source" json:"valuation_source"`
}

// FRED holds the series IDs for one country's macro indicators.
type FRED struct {
	PolicyRate   string `yaml:"policy_rate" json:"policy_rate"`
	LongTermRate string `yaml:"long_term_rate" json:"long_term_rate"`
	CPI          string `yaml:"cpi" json:"cpi"`
}

// Timeframe is one scoring horizon with its signal weights.
type Timeframe struct {
	Name         string  `yaml:"name" json:"name"`
	LookbackDays int     `yaml:"lookback_days" json:"lookback_days"`
	Weights      Weights `yaml:"weights" json:"weights"`
}

// Weights are the per-signal weights for a timeframe. They must sum to 1.0.
type Weights struct {
	Trend         float64 `yaml:"trend" json:"trend"`
	MA200Distance float64 `yaml:"ma200_distance" json:"ma200_distance"`
	Volume        float64 `yaml:"volume" json:"volume"`
	PolicyRate    float64 `yaml:"policy_rate" json:"policy_rate"`
	CPI           float64 `yaml:"cpi" json:"cpi"`
	Valuation     float64 `yaml:"valuation" json:"valuation"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Trend + w.MA200Distance + w.Volume + w.PolicyRate + w.CPI + w.Valuation
}

// Narration controls the template commentary buckets.
type Narration struct {
	// BearishMax is the highest score still narrated as bearish.
	BearishMax int `yaml:"bearish_max" json:"bearish_max"`
	// BullishMin is the lowest score narrated as bullish.
	BullishMin int `yaml:"bullish_min" json:"bullish_min"`
}

// LLM controls the model-written commentary. When disabled the template
// narrator is used directly.
type LLM struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Model       string  `yaml:"model" json:"model"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// Fallback controls cached snapshot reuse.
type Fallback struct {
	// MaxAgeDays caps how old a snapshot may be before it is rejected.
	// Zero means no limit.
	MaxAgeDays int `yaml:"max_age_days" json:"max_age_days"`
}

// Scheduler holds the cron expression for unattended runs.
type Scheduler struct {
	Cron string `yaml:"cron" json:"cron"`
}

package reportconfig

import (
	"fmt"
	"math"
	"time"
)

// ValidationError is a fatal config problem. The program refuses to run
// with an invalid config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const weightEpsilon = 1e-6

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ReportID == "" {
		return ValidationError{"meta.report_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Markets ===
	if len(cfg.Markets) == 0 {
		return ValidationError{"markets", "at least one market required"}
	}
	seen := make(map[string]bool)
	for i, m := range cfg.Markets {
		if m.Country == "" {
			return ValidationError{fmt.Sprintf("markets[%d].country", i), "required"}
		}
		if seen[m.Country] {
			return ValidationError{fmt.Sprintf("markets[%d].country", i), fmt.Sprintf("duplicate country %q", m.Country)}
		}
		seen[m.Country] = true

		if m.IndexSymbol == "" {
			return ValidationError{fmt.Sprintf("markets[%d].index_symbol", i), "required"}
		}
		if m.ValuationSource != "" && m.ValuationSource != "multpl" {
			return ValidationError{fmt.Sprintf("markets[%d].valuation_source", i), fmt.Sprintf("unknown source %q", m.ValuationSource)}
		}
	}

	// === Timeframes ===
	if len(cfg.Timeframes) == 0 {
		return ValidationError{"timeframes", "at least one timeframe required"}
	}
	names := make(map[string]bool)
	for i, tf := range cfg.Timeframes {
		if tf.Name == "" {
			return ValidationError{fmt.Sprintf("timeframes[%d].name", i), "required"}
		}
		if names[tf.Name] {
			return ValidationError{fmt.Sprintf("timeframes[%d].name", i), fmt.Sprintf("duplicate timeframe %q", tf.Name)}
		}
		names[tf.Name] = true

		if tf.LookbackDays <= 0 {
			return ValidationError{fmt.Sprintf("timeframes[%d].lookback_days", i), "must be > 0"}
		}
		if sum := tf.Weights.Sum(); math.Abs(sum-1.0) > weightEpsilon {
			return ValidationError{
				Field:   fmt.Sprintf("timeframes[%d].weights", i),
				Message: fmt.Sprintf("must sum to 1.0, got %.4f", sum),
			}
		}
	}

	// === Narration ===
	if cfg.Narration.BearishMax >= cfg.Narration.BullishMin {
		return ValidationError{"narration", "bearish_max must be < bullish_min"}
	}

	// === LLM ===
	if cfg.LLM.Enabled {
		if cfg.LLM.Model == "" {
			return ValidationError{"llm.model", "required when llm is enabled"}
		}
		if cfg.LLM.MaxTokens <= 0 {
			return ValidationError{"llm.max_tokens", "must be > 0"}
		}
		if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 1 {
			return ValidationError{"llm.temperature", "must be in range [0, 1]"}
		}
	}

	// === Fallback ===
	if cfg.Fallback.MaxAgeDays < 0 {
		return ValidationError{"fallback.max_age_days", "must be >= 0"}
	}

	return nil
}

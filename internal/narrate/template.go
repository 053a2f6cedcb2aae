package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/reportconfig"
)

// TemplateNarrator produces deterministic commentary from the score and
// features. It never fails, which makes it the fallback behind the LLM
// narrator.
type TemplateNarrator struct {
	cfg reportconfig.Narration
}

// NewTemplateNarrator creates a template narrator with the given bucket
// boundaries.
func NewTemplateNarrator(cfg reportconfig.Narration) *TemplateNarrator {
	return &TemplateNarrator{cfg: cfg}
}

// Narrate builds the four sections from the scored features.
func (n *TemplateNarrator) Narrate(_ context.Context, in Input) (contracts.Narration, error) {
	stance := n.stance(in.Score.Level)

	return contracts.Narration{
		Conclusion:     n.conclusion(in, stance),
		Premise:        n.premise(in),
		Risk:           n.risk(in, stance),
		ReversalSignal: n.reversalSignal(in, stance),
		Source:         contracts.NarrationSourceTemplate,
	}, nil
}

type stance int

const (
	stanceBearish stance = iota - 1
	stanceNeutral
	stanceBullish
)

func (n *TemplateNarrator) stance(level contracts.ScoreLevel) stance {
	switch {
	case int(level) <= n.cfg.BearishMax:
		return stanceBearish
	case int(level) >= n.cfg.BullishMin:
		return stanceBullish
	default:
		return stanceNeutral
	}
}

func (n *TemplateNarrator) conclusion(in Input, s stance) string {
	var outlook string
	switch s {
	case stanceBearish:
		outlook = "the balance of signals points lower"
	case stanceBullish:
		outlook = "the balance of signals points higher"
	default:
		outlook = "the signals are mixed and offer no directional edge"
	}

	text := fmt.Sprintf("%s %s-term outlook: %s (score %+d, %s).",
		in.Country, in.Timeframe, outlook, int(in.Score.Level), in.Score.Level.Label())
	if in.Stale {
		text += fmt.Sprintf(" Based on cached data %d day(s) old.", in.StaleAgeDays)
	}
	return text
}

func (n *TemplateNarrator) premise(in Input) string {
	var parts []string

	tech := in.Technical
	switch tech.TrendDirection {
	case contracts.TrendUp:
		parts = append(parts, fmt.Sprintf("price at %.2f holds above its medium-term average", tech.Close))
	case contracts.TrendDown:
		parts = append(parts, fmt.Sprintf("price at %.2f sits below its medium-term average", tech.Close))
	default:
		parts = append(parts, fmt.Sprintf("price at %.2f is tracking its medium-term average", tech.Close))
	}

	if tech.PriceVsMA200Pct != nil {
		parts = append(parts, fmt.Sprintf("%.1f%% from the 200-day average", *tech.PriceVsMA200Pct))
	}
	parts = append(parts, fmt.Sprintf("volatility is %s", tech.VolatilityBucket))

	if in.Macro != nil {
		if in.Macro.PolicyRate != nil {
			parts = append(parts, fmt.Sprintf("policy rate at %.2f%% and %s", *in.Macro.PolicyRate, trendWord(in.Macro.PolicyRateTrend)))
		}
		if in.Macro.CPIYoY != nil {
			parts = append(parts, fmt.Sprintf("inflation at %.1f%% YoY and %s", *in.Macro.CPIYoY, trendWord(in.Macro.CPITrend)))
		}
	} else {
		parts = append(parts, "macro indicators were unavailable and treated as neutral")
	}

	if in.Valuation != nil && in.Valuation.PER != nil {
		parts = append(parts, fmt.Sprintf("the index trades at %.1fx earnings", *in.Valuation.PER))
	}

	return strings.Join(parts, "; ") + "."
}

func (n *TemplateNarrator) risk(in Input, s stance) string {
	switch s {
	case stanceBullish:
		if in.Technical.VolatilityBucket == contracts.VolatilityHigh {
			return "Elevated volatility means the uptrend can unwind quickly on negative surprises."
		}
		return "A macro surprise, particularly on inflation or rates, could undercut the supportive backdrop."
	case stanceBearish:
		return "Positioning is already defensive; a sharp relief rally on better macro data is the main risk to this view."
	default:
		return "With no directional edge, the main risk is a breakout in either direction that this read would miss."
	}
}

func (n *TemplateNarrator) reversalSignal(in Input, s stance) string {
	switch s {
	case stanceBullish:
		return "A close back below the 75-day average, or a turn higher in inflation, would negate this view."
	case stanceBearish:
		return "A close back above the 75-day average on above-average volume would negate this view."
	default:
		return "A sustained move away from the 75-day average in either direction would establish a new trend."
	}
}

func trendWord(trend int) string {
	switch trend {
	case contracts.TrendUp:
		return "rising"
	case contracts.TrendDown:
		return "falling"
	default:
		return "steady"
	}
}

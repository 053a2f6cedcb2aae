package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/reportconfig"
	"github.com/wonny/marketbrief/pkg/logger"
)

const systemPrompt = `You are a market analyst writing a short daily brief.
Write in measured, factual prose. You must never tell the reader to buy or
sell anything; describe conditions, not instructions.
Respond with exactly four sections, each on its own lines, labeled:
Conclusion:
Premise:
Risk:
Reversal signal:`

// bannedPhrases are screened out of model output. Commentary that crosses
// into trade instructions falls back to the template narrator.
var bannedPhrases = []string{
	"you should buy",
	"you should sell",
	"buy now",
	"sell now",
	"strong buy",
	"strong sell",
	"recommend buying",
	"recommend selling",
}

// LLMNarrator asks a Claude model to write the commentary and falls back to
// a deterministic narrator when the model is unavailable, unparseable, or
// produces banned content.
type LLMNarrator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	fallback    Narrator
	logger      *logger.Logger

	// generate is swappable for tests.
	generate func(ctx context.Context, system, user string) (string, error)
}

// NewLLMNarrator creates an LLM narrator. fallback must not be nil.
func NewLLMNarrator(apiKey string, cfg reportconfig.LLM, fallback Narrator, log *logger.Logger) *LLMNarrator {
	n := &LLMNarrator{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		fallback:    fallback,
		logger:      log,
	}
	n.generate = n.complete
	return n
}

// Narrate asks the model for commentary. Any failure falls back to the
// template narrator; the pipeline never stops for a narration problem.
func (n *LLMNarrator) Narrate(ctx context.Context, in Input) (contracts.Narration, error) {
	text, err := n.generate(ctx, systemPrompt, buildPrompt(in))
	if err != nil {
		n.logger.WithError(err).WithFields(map[string]interface{}{
			"country":   in.Country,
			"timeframe": in.Timeframe,
		}).Warn("LLM narration failed, using template")
		return n.fallbackWithReason(ctx, in, fmt.Sprintf("llm request failed: %v", err))
	}

	narration, err := parseSections(text)
	if err != nil {
		n.logger.WithError(err).Warn("LLM response unparseable, using template")
		return n.fallbackWithReason(ctx, in, fmt.Sprintf("llm response unparseable: %v", err))
	}

	if phrase := findBannedPhrase(text); phrase != "" {
		n.logger.WithField("phrase", phrase).Warn("LLM response contains trade instruction, using template")
		return n.fallbackWithReason(ctx, in, fmt.Sprintf("llm response contained banned phrase %q", phrase))
	}

	narration.Source = contracts.NarrationSourceLLM
	return narration, nil
}

// fallbackWithReason runs the template narrator and stamps why the LLM
// output was rejected, so the report discloses the downgrade.
func (n *LLMNarrator) fallbackWithReason(ctx context.Context, in Input, reason string) (contracts.Narration, error) {
	narration, err := n.fallback.Narrate(ctx, in)
	if err != nil {
		return narration, err
	}
	narration.FallbackReason = reason
	return narration, nil
}

// complete performs the actual API call.
func (n *LLMNarrator) complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(n.model),
		MaxTokens: n.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
	}
	if n.temperature > 0 {
		params.Temperature = anthropic.Float(n.temperature)
	}

	resp, err := n.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in Claude response")
	}

	return b.String(), nil
}

// buildPrompt serializes the scored features into the user message.
func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s, timeframe: %s\n", in.Country, in.Timeframe)
	fmt.Fprintf(&b, "Score: %+d (%s), raw %.2f\n", int(in.Score.Level), in.Score.Level.Label(), in.Score.Raw)

	tech := in.Technical
	fmt.Fprintf(&b, "Close: %.2f, trend: %s, volatility: %s\n", tech.Close, trendWord(tech.TrendDirection), tech.VolatilityBucket)
	if tech.PriceVsMA200Pct != nil {
		fmt.Fprintf(&b, "Distance from 200-day average: %.1f%%\n", *tech.PriceVsMA200Pct)
	}

	if in.Macro != nil {
		if in.Macro.PolicyRate != nil {
			fmt.Fprintf(&b, "Policy rate: %.2f%% (%s)\n", *in.Macro.PolicyRate, trendWord(in.Macro.PolicyRateTrend))
		}
		if in.Macro.CPIYoY != nil {
			fmt.Fprintf(&b, "CPI YoY: %.1f%% (%s)\n", *in.Macro.CPIYoY, trendWord(in.Macro.CPITrend))
		}
	} else {
		b.WriteString("Macro indicators unavailable\n")
	}

	if in.Valuation != nil && in.Valuation.PER != nil {
		fmt.Fprintf(&b, "Index PER: %.1f (%s)\n", *in.Valuation.PER, trendWord(in.Valuation.PERTrend))
	}

	if in.Stale {
		fmt.Fprintf(&b, "Note: source data is cached and %d day(s) old\n", in.StaleAgeDays)
	}

	b.WriteString("\nWrite the four-section brief.")
	return b.String()
}

// parseSections splits the model output into the four labeled sections.
func parseSections(text string) (contracts.Narration, error) {
	sections := map[string]*strings.Builder{
		"conclusion":      {},
		"premise":         {},
		"risk":            {},
		"reversal signal": {},
	}

	var current *strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		matched := false
		for label, b := range sections {
			prefix := label + ":"
			if len(trimmed) >= len(prefix) && strings.EqualFold(trimmed[:len(prefix)], prefix) {
				current = b
				rest := strings.TrimSpace(trimmed[len(prefix):])
				if rest != "" {
					b.WriteString(rest)
				}
				matched = true
				break
			}
		}
		if matched || current == nil || trimmed == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(trimmed)
	}

	narration := contracts.Narration{
		Conclusion:     sections["conclusion"].String(),
		Premise:        sections["premise"].String(),
		Risk:           sections["risk"].String(),
		ReversalSignal: sections["reversal signal"].String(),
	}

	if narration.Conclusion == "" || narration.Premise == "" || narration.Risk == "" || narration.ReversalSignal == "" {
		return contracts.Narration{}, fmt.Errorf("response missing one or more sections")
	}

	return narration, nil
}

// findBannedPhrase returns the first banned phrase found, or "".
func findBannedPhrase(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return ""
}

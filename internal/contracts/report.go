package contracts

import (
	"fmt"
	"time"
)

// Timeframe values for report entries.
const (
	TimeframeShort  = "short"
	TimeframeMedium = "medium"
	TimeframeLong   = "long"
)

// Narration is the written commentary for one market and timeframe. The four
// sections are always present; Source records whether they came from the LLM
// or the template fallback.
type Narration struct {
	Conclusion     string `json:"conclusion"`
	Premise        string `json:"premise"`
	Risk           string `json:"risk"`
	ReversalSignal string `json:"reversal_signal"`
	Source         string `json:"source"`

	// FallbackReason is set when an LLM narration attempt failed and the
	// template stood in; empty when the template was chosen by config.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Narration sources.
const (
	NarrationSourceLLM      = "llm"
	NarrationSourceTemplate = "template"
)

// ThinkingEntry is one step in the reasoning trail attached to a report.
type ThinkingEntry struct {
	At      time.Time `json:"at"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
}

// ThinkingLog collects reasoning steps in order.
type ThinkingLog struct {
	Entries []ThinkingEntry `json:"entries"`
}

// Add appends a step to the log.
func (l *ThinkingLog) Add(stage, format string, args ...interface{}) {
	l.Entries = append(l.Entries, ThinkingEntry{
		At:      time.Now().UTC(),
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	})
}

// ReportEntry is the complete analysis for one country and timeframe.
type ReportEntry struct {
	Country   string `json:"country"`
	Timeframe string `json:"timeframe"`

	Technical TechnicalFeatures  `json:"technical"`
	Macro     *MacroFeatures     `json:"macro,omitempty"`
	Valuation *ValuationFeatures `json:"valuation,omitempty"`
	Score     Score              `json:"score"`
	Narration Narration          `json:"narration"`

	// Stale is set when the entry was built from a fallback snapshot
	// instead of a live fetch.
	Stale        bool `json:"stale,omitempty"`
	StaleAgeDays int  `json:"stale_age_days,omitempty"`
}

// Report is the assembled output of one pipeline run. Entries are keyed by
// EntryKey(country, timeframe).
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	ConfigHash  string                 `json:"config_hash,omitempty"`
	Entries     map[string]ReportEntry `json:"entries"`
	Thinking    ThinkingLog            `json:"thinking"`
}

// EntryKey builds the report map key for a country and timeframe,
// e.g. "US/short".
func EntryKey(country, timeframe string) string {
	return country + "/" + timeframe
}

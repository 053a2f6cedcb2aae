package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/reportconfig"
)

// AssemblyError reports entries the pipeline failed to produce. A report
// with holes is never written.
type AssemblyError struct {
	Missing []string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("report incomplete, missing entries: %s", strings.Join(e.Missing, ", "))
}

// Assemble builds the final report from per-market entries. Every
// country/timeframe pair in the config must be present.
func Assemble(cfg *reportconfig.Config, entries map[string]contracts.ReportEntry, thinking contracts.ThinkingLog, configHash string) (*contracts.Report, error) {
	var missing []string
	for _, market := range cfg.Markets {
		for _, tf := range cfg.Timeframes {
			key := contracts.EntryKey(market.Country, tf.Name)
			if _, ok := entries[key]; !ok {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &AssemblyError{Missing: missing}
	}

	return &contracts.Report{
		GeneratedAt: time.Now().UTC(),
		ConfigHash:  configHash,
		Entries:     entries,
		Thinking:    thinking,
	}, nil
}

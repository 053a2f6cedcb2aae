package commands

import (
	"fmt"
	"time"

	"github.com/wonny/marketbrief/internal/pipeline"
)

// Shared output formatting so every command prints runs the same way.

func printRunHeader(title, runID string, date time.Time) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	fmt.Println("───────────────────────────────────────────────────────────")
	fmt.Printf("  Run ID : %s\n", runID)
	fmt.Printf("  Date   : %s\n", date.Format("2006-01-02"))
	fmt.Println("───────────────────────────────────────────────────────────")
}

func printRunCompletion(result *pipeline.RunResult) {
	fmt.Println()
	fmt.Printf("✅ %s completed in %.2fs (stages: %v)\n", result.RunID, result.Duration.Seconds(), result.CompletedStages)
	if result.AnalysisPath != "" {
		fmt.Printf("   analysis:    %s\n", result.AnalysisPath)
	}
	if result.MarketDataPath != "" {
		fmt.Printf("   market data: %s\n", result.MarketDataPath)
	}
	fmt.Println()
}

func printRunFailure(err error) {
	fmt.Println()
	fmt.Printf("❌ Run failed: %v\n", err)
	fmt.Println()
}

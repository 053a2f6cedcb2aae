package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketbrief/internal/pipeline"
)

var (
	runDate      string
	runDryRun    bool
	runSkipMacro bool
)

// runCmd executes the full pipeline once
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a report now",
	Long: `Runs the full pipeline: fetch prices and macro indicators, compute
features, score each market and timeframe, narrate, and write
market_data.json and analysis_result.json to the output directory.

Example:
  marketbrief run
  marketbrief run --date 2026-08-28
  marketbrief run --dry-run --skip-macro`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDate, "date", "", "run date (YYYY-MM-DD, default today)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "skip artifact writes")
	runCmd.Flags().BoolVar(&runSkipMacro, "skip-macro", false, "skip macro and valuation fetches")
}

func runReport(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}

	date, err := resolveDate(runDate)
	if err != nil {
		return err
	}

	runCfg := pipeline.RunConfig{
		Date:      date,
		RunID:     pipeline.GenerateRunID(),
		DryRun:    runDryRun,
		SkipMacro: runSkipMacro,
	}

	printRunHeader("Report Generation", runCfg.RunID, date)

	result, err := d.orch.Run(context.Background(), runCfg)
	if err != nil {
		printRunFailure(err)
		return err
	}

	printRunCompletion(result)

	for key, entry := range result.Report.Entries {
		fmt.Printf("  %-10s score %+d (%s)", key, int(entry.Score.Level), entry.Score.Level.Label())
		if entry.Stale {
			fmt.Printf("  [stale %dd]", entry.StaleAgeDays)
		}
		fmt.Println()
	}

	return nil
}

func resolveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return date, nil
}

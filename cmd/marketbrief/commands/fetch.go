package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/marketbrief/internal/pipeline"
)

var fetchDate string

// fetchCmd fetches market data only, without analysis
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch market data without analyzing",
	Long: `Fetches index prices, macro indicators, and valuation data, then
writes market_data.json. Use "marketbrief analyze" afterwards to score
the saved data.

Example:
  marketbrief fetch
  marketbrief fetch --date 2026-08-28`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "fetch date (YYYY-MM-DD, default today)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}

	date, err := resolveDate(fetchDate)
	if err != nil {
		return err
	}

	runCfg := pipeline.RunConfig{
		Date:  date,
		RunID: pipeline.GenerateRunID(),
	}

	printRunHeader("Data Fetch", runCfg.RunID, date)

	path, err := d.orch.FetchOnly(context.Background(), runCfg)
	if err != nil {
		printRunFailure(err)
		return err
	}

	fmt.Println()
	fmt.Printf("✅ Market data written to %s\n", path)
	fmt.Println()
	return nil
}

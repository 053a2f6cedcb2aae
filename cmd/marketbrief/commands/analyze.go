package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketbrief/internal/pipeline"
	"github.com/wonny/marketbrief/internal/report"
)

var (
	analyzeInput string
	analyzeDate  string
)

// analyzeCmd scores previously fetched market data
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze previously fetched market data",
	Long: `Reads a market_data.json written by "marketbrief fetch" (or a full
run) and produces analysis_result.json without touching the network.

Example:
  marketbrief analyze
  marketbrief analyze --input output/market_data.json`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "market data file (default <output dir>/market_data.json)")
	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "analysis date (YYYY-MM-DD, default today)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}

	date, err := resolveDate(analyzeDate)
	if err != nil {
		return err
	}

	input := analyzeInput
	if input == "" {
		input = filepath.Join(d.cfg.OutputDir, report.MarketDataFile)
	}

	md, err := readMarketData(input)
	if err != nil {
		return err
	}

	runCfg := pipeline.RunConfig{
		Date:  date,
		RunID: pipeline.GenerateRunID(),
	}

	printRunHeader("Analysis", runCfg.RunID, date)
	fmt.Printf("  Input  : %s (fetched %s)\n", input, md.GeneratedAt.Format(time.RFC3339))

	result, err := d.orch.AnalyzeFromMarketData(context.Background(), md, runCfg)
	if err != nil {
		printRunFailure(err)
		return err
	}

	printRunCompletion(result)
	return nil
}

func readMarketData(path string) (*report.MarketData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read market data %s: %w", path, err)
	}

	var md report.MarketData
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parse market data %s: %w", path, err)
	}
	return &md, nil
}

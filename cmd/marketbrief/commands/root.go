package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	outDir     string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marketbrief",
	Short: "Scheduled market report generator",
	Long: `marketbrief fetches index prices and macro indicators, scores each
market on a five-level directional scale, writes a narrated report, and
can run the whole pipeline on a cron schedule.

Examples:
  marketbrief run
  marketbrief run --date 2026-08-28 --dry-run
  marketbrief fetch
  marketbrief analyze
  marketbrief scheduler start
  marketbrief config check`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/report.yaml", "report config file")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "", "output directory (overrides OUTPUT_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/marketbrief/internal/reportconfig"
)

// configCmd groups config inspection subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the report configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the report config and print its hash",
	Long: `Loads and validates the report config file, then prints a summary
and the config hash recorded in generated reports.

Example:
  marketbrief config check
  marketbrief config check --config config/report.yaml`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, raw, err := reportconfig.Load(configPath)
	if err != nil {
		fmt.Printf("❌ %s: %v\n", configPath, err)
		return err
	}

	hash, err := reportconfig.Hash(cfg)
	if err != nil {
		return fmt.Errorf("hash config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ %s is valid (%d bytes)\n", configPath, len(raw))
	fmt.Println()
	fmt.Printf("  Report    : %s (v%s, tz %s)\n", cfg.Meta.ReportID, cfg.Meta.Version, cfg.Meta.Timezone)
	fmt.Printf("  Hash      : %s\n", hash)
	fmt.Printf("  Markets   :")
	for _, m := range cfg.Markets {
		fmt.Printf(" %s(%s)", m.Country, m.IndexSymbol)
	}
	fmt.Println()
	fmt.Printf("  Timeframes:")
	for _, tf := range cfg.Timeframes {
		fmt.Printf(" %s(%dd)", tf.Name, tf.LookbackDays)
	}
	fmt.Println()
	fmt.Printf("  LLM       : enabled=%t model=%s\n", cfg.LLM.Enabled, cfg.LLM.Model)
	fmt.Printf("  Schedule  : %s\n", cfg.Scheduler.Cron)
	fmt.Println()
	return nil
}

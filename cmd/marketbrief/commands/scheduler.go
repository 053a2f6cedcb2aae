package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/marketbrief/internal/scheduler"
	"github.com/wonny/marketbrief/internal/scheduler/jobs"
)

// schedulerCmd manages scheduled report generation
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage scheduled report generation",
	Long: `Runs the report pipeline on the cron schedule from the report config.

Example:
  marketbrief scheduler start
  marketbrief scheduler list
  marketbrief scheduler run report_generation
  marketbrief scheduler status`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler (runs until interrupted)",
	RunE:  runSchedulerStart,
}

var schedulerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered jobs",
	RunE:  runSchedulerList,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "Run a job immediately",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchedulerRun,
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show job statistics",
	RunE:  runSchedulerStatus,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// initScheduler wires the scheduler with all jobs registered.
func initScheduler() (*deps, *scheduler.Scheduler, error) {
	d, err := buildDeps()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(d.log)

	reportJob := jobs.NewReportGenerationJob(d.orch, d.reportCfg.Scheduler.Cron, d.log)
	if err := sched.AddJob(reportJob); err != nil {
		return nil, nil, fmt.Errorf("add report job: %w", err)
	}

	return d, sched, nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	d, sched, err := initScheduler()
	if err != nil {
		return err
	}

	sched.Start()
	d.log.Info("Scheduler started, press Ctrl+C to stop")

	fmt.Println()
	fmt.Println("Scheduler running with jobs:")
	for name, stats := range sched.GetJobStats() {
		fmt.Printf("  %-20s %s\n", name, stats.Schedule)
	}
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sched.Stop()
	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	_, sched, err := initScheduler()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Registered jobs:")
	for name, stats := range sched.GetJobStats() {
		fmt.Printf("  %-20s schedule=%s\n", name, stats.Schedule)
	}
	fmt.Println()
	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	jobName := "report_generation"
	if len(args) > 0 {
		jobName = args[0]
	}

	_, sched, err := initScheduler()
	if err != nil {
		return err
	}

	fmt.Printf("Running job %s...\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	// RunJob is async; poll history until the run lands.
	for i := 0; i < 600; i++ {
		time.Sleep(time.Second)
		history, err := sched.GetJobHistory(jobName)
		if err != nil {
			return err
		}
		results := history.GetLatestResults(1)
		if len(results) == 0 {
			continue
		}
		r := results[0]
		if r.Success {
			fmt.Printf("✅ %s completed in %.2fs\n", jobName, r.Duration.Seconds())
			return nil
		}
		return fmt.Errorf("job %s failed: %s", jobName, r.Error)
	}
	return fmt.Errorf("job %s did not finish within 10 minutes", jobName)
}

func runSchedulerStatus(cmd *cobra.Command, args []string) error {
	_, sched, err := initScheduler()
	if err != nil {
		return err
	}

	stats := sched.GetJobStats()
	if len(stats) == 0 {
		fmt.Println("No jobs registered")
		return nil
	}

	fmt.Println()
	for name, s := range stats {
		fmt.Printf("Job: %s\n", name)
		fmt.Printf("  Schedule     : %s\n", s.Schedule)
		fmt.Printf("  Total runs   : %d\n", s.TotalRuns)
		fmt.Printf("  Success rate : %.1f%%\n", s.SuccessRate*100)
		if s.LastRun != nil {
			fmt.Printf("  Last run     : %s\n", s.LastRun.Format(time.RFC3339))
		}
		if s.LastFailure != nil {
			fmt.Printf("  Last failure : %s\n", s.LastFailure.Format(time.RFC3339))
		}
		fmt.Println()
	}
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/marketbrief/internal/pipeline"
	"github.com/wonny/marketbrief/pkg/logger"
)

// ReportGenerationJob runs the full report pipeline on schedule.
type ReportGenerationJob struct {
	orchestrator *pipeline.Orchestrator
	schedule     string
	logger       *logger.Logger
}

// NewReportGenerationJob creates the report job with the cron expression
// from the report config.
func NewReportGenerationJob(o *pipeline.Orchestrator, schedule string, log *logger.Logger) *ReportGenerationJob {
	if schedule == "" {
		schedule = "0 30 7 * * *" // 07:30 daily (with seconds)
	}
	return &ReportGenerationJob{
		orchestrator: o,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *ReportGenerationJob) Name() string {
	return "report_generation"
}

// Schedule returns the cron schedule
func (j *ReportGenerationJob) Schedule() string {
	return j.schedule
}

// Run executes one report generation
func (j *ReportGenerationJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled report generation")

	result, err := j.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:  time.Now(),
		RunID: pipeline.GenerateRunID(),
	})
	if err != nil {
		return fmt.Errorf("report run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"entries":  len(result.Report.Entries),
		"analysis": result.AnalysisPath,
	}).Info("Scheduled report generation completed successfully")
	return nil
}

package commands

import (
	"fmt"

	"github.com/wonny/marketbrief/internal/external/fred"
	"github.com/wonny/marketbrief/internal/external/multpl"
	"github.com/wonny/marketbrief/internal/external/stooq"
	"github.com/wonny/marketbrief/internal/fallback"
	"github.com/wonny/marketbrief/internal/fetch"
	"github.com/wonny/marketbrief/internal/narrate"
	"github.com/wonny/marketbrief/internal/pipeline"
	"github.com/wonny/marketbrief/internal/report"
	"github.com/wonny/marketbrief/internal/reportconfig"
	"github.com/wonny/marketbrief/pkg/config"
	"github.com/wonny/marketbrief/pkg/httputil"
	"github.com/wonny/marketbrief/pkg/logger"
)

// deps bundles everything a command needs.
type deps struct {
	cfg       *config.Config
	reportCfg *reportconfig.Config
	hash      string
	log       *logger.Logger
	orch      *pipeline.Orchestrator
}

// buildDeps loads configuration and wires the pipeline.
func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}

	log := logger.New(cfg)

	reportCfg, _, err := reportconfig.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load report config %s: %w", configPath, err)
	}
	hash, err := reportconfig.Hash(reportCfg)
	if err != nil {
		return nil, fmt.Errorf("hash report config: %w", err)
	}

	// Free data sources throttle hard; keep requests slow and retried
	httpClient := httputil.New(cfg, log).WithRateLimit(2, 1)

	stooqClient := stooq.NewClient(httpClient, log)
	fredClient := fred.NewClient(httpClient, log, cfg.FRED.BaseURL, cfg.FRED.APIKey)
	multplClient := multpl.NewClient(httpClient, log)

	store := fallback.NewStore(cfg.FallbackDir, log)
	fetcher := fetch.NewFetcher(store, log, reportCfg.Fallback.MaxAgeDays)
	writer := report.NewWriter(cfg.OutputDir, log)

	var narrator narrate.Narrator = narrate.NewTemplateNarrator(reportCfg.Narration)
	if reportCfg.LLM.Enabled && cfg.Anthropic.APIKey != "" {
		narrator = narrate.NewLLMNarrator(cfg.Anthropic.APIKey, reportCfg.LLM, narrator, log)
	} else if reportCfg.LLM.Enabled {
		log.Warn("LLM narration enabled but ANTHROPIC_API_KEY not set, using templates")
	}

	orch := pipeline.NewOrchestrator(reportCfg, hash, fetcher, stooqClient, fredClient, multplClient, narrator, writer, log)

	return &deps{
		cfg:       cfg,
		reportCfg: reportCfg,
		hash:      hash,
		log:       log,
		orch:      orch,
	}, nil
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/fetch"
	"github.com/wonny/marketbrief/internal/narrate"
	"github.com/wonny/marketbrief/internal/report"
	"github.com/wonny/marketbrief/internal/reportconfig"
	"github.com/wonny/marketbrief/internal/scoring"
	"github.com/wonny/marketbrief/internal/technical"
	"github.com/wonny/marketbrief/pkg/logger"
)

// priceHistoryBuffer extends the fetch window beyond the longest timeframe
// so the 200-day average has data behind it. Calendar days, not trading
// days, hence the generous margin.
const priceHistoryBuffer = 320

// PriceSource fetches daily index prices.
type PriceSource interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) (contracts.TimeSeries, error)
}

// MacroSource fetches macro indicator series by series ID.
type MacroSource interface {
	FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (contracts.TimeSeries, error)
}

// ValuationSource fetches the index-level earnings multiple.
type ValuationSource interface {
	FetchSP500PER(ctx context.Context) (contracts.TimeSeries, error)
}

// Orchestrator coordinates the report pipeline:
// fetch -> features -> score -> narrate -> assemble.
type Orchestrator struct {
	cfg        *reportconfig.Config
	configHash string

	fetcher   *fetch.Fetcher
	prices    PriceSource
	macro     MacroSource
	valuation ValuationSource
	narrator  narrate.Narrator
	writer    *report.Writer

	logger *logger.Logger
}

// RunConfig holds per-run parameters.
type RunConfig struct {
	Date      time.Time
	RunID     string
	DryRun    bool // Skip artifact writes
	SkipMacro bool // Skip macro and valuation fetches
}

// RunResult holds the outcome of a pipeline run.
type RunResult struct {
	RunID           string
	Date            time.Time
	Success         bool
	Error           error
	CompletedStages []string
	Report          *contracts.Report
	MarketDataPath  string
	AnalysisPath    string
	Duration        time.Duration
}

// NewOrchestrator wires the pipeline together. valuation may be nil when no
// market configures a valuation source.
func NewOrchestrator(
	cfg *reportconfig.Config,
	configHash string,
	fetcher *fetch.Fetcher,
	prices PriceSource,
	macro MacroSource,
	valuation ValuationSource,
	narrator narrate.Narrator,
	writer *report.Writer,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		configHash: configHash,
		fetcher:    fetcher,
		prices:     prices,
		macro:      macro,
		valuation:  valuation,
		narrator:   narrator,
		writer:     writer,
		logger:     log,
	}
}

// marketData is the intermediate state carried between stages.
type marketData struct {
	market    reportconfig.Market
	prices    fetch.Result
	policy    contracts.TimeSeries
	longRate  contracts.TimeSeries
	cpi       contracts.TimeSeries
	per       contracts.TimeSeries
	macroSeen bool
	valSeen   bool
}

// Run executes the full pipeline for one date.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()

	result := &RunResult{
		RunID:           config.RunID,
		Date:            config.Date,
		CompletedStages: make([]string, 0),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":     config.RunID,
		"date":       config.Date.Format("2006-01-02"),
		"dry_run":    config.DryRun,
		"skip_macro": config.SkipMacro,
	}).Info("Starting report run")

	var thinking contracts.ThinkingLog

	// Fetch
	data, records, err := o.runFetch(ctx, config, &thinking)
	if err != nil {
		result.Error = fmt.Errorf("fetch failed: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, "fetch")

	// Features, scoring, narration per market and timeframe
	entries, err := o.runAnalysis(ctx, data, &thinking)
	if err != nil {
		result.Error = fmt.Errorf("analysis failed: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, "analyze")

	// Assemble
	rep, err := report.Assemble(o.cfg, entries, thinking, o.configHash)
	if err != nil {
		result.Error = fmt.Errorf("assemble failed: %w", err)
		return result, result.Error
	}
	result.Report = rep
	result.CompletedStages = append(result.CompletedStages, "assemble")

	// Write artifacts
	if !config.DryRun {
		md := &report.MarketData{GeneratedAt: time.Now().UTC(), Series: records}
		mdPath, err := o.writer.WriteMarketData(md)
		if err != nil {
			result.Error = fmt.Errorf("write market data failed: %w", err)
			return result, result.Error
		}
		result.MarketDataPath = mdPath

		aPath, err := o.writer.WriteAnalysis(rep)
		if err != nil {
			result.Error = fmt.Errorf("write analysis failed: %w", err)
			return result, result.Error
		}
		result.AnalysisPath = aPath
		result.CompletedStages = append(result.CompletedStages, "write")
	} else {
		o.logger.Info("Skipping artifact writes (dry run mode)")
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":   config.RunID,
		"entries":  len(rep.Entries),
		"duration": result.Duration.Seconds(),
	}).Info("Report run completed")

	return result, nil
}

// runFetch pulls every configured series. Price series are mandatory; macro
// and valuation series degrade to absent on failure.
func (o *Orchestrator) runFetch(ctx context.Context, config RunConfig, thinking *contracts.ThinkingLog) ([]marketData, map[string]report.SeriesRecord, error) {
	o.logger.Info("Running stage: fetch")

	maxLookback := 0
	for _, tf := range o.cfg.Timeframes {
		if tf.LookbackDays > maxLookback {
			maxLookback = tf.LookbackDays
		}
	}
	from := config.Date.AddDate(0, 0, -(maxLookback + priceHistoryBuffer))

	records := make(map[string]report.SeriesRecord)
	data := make([]marketData, 0, len(o.cfg.Markets))

	for _, market := range o.cfg.Markets {
		md := marketData{market: market}

		// Index prices are the backbone of every entry; no prices, no run
		symbol := market.IndexSymbol
		priceResult, err := o.fetcher.Fetch(ctx, symbol, fetch.ProviderFunc(func(ctx context.Context) (contracts.TimeSeries, error) {
			return o.prices.FetchDaily(ctx, symbol, from, config.Date)
		}))
		if err != nil {
			return nil, nil, err
		}
		md.prices = priceResult
		records[symbol] = report.SeriesRecord{Series: priceResult.Series, Stale: priceResult.Stale, AgeDays: priceResult.AgeDays}
		thinking.Add("fetch", "%s prices: %d points, stale=%v", symbol, priceResult.Series.Len(), priceResult.Stale)

		if !config.SkipMacro {
			md.policy = o.fetchMacroSeries(ctx, market.FRED.PolicyRate, from, config.Date, records, thinking)
			md.longRate = o.fetchMacroSeries(ctx, market.FRED.LongTermRate, from, config.Date, records, thinking)
			// CPI YoY needs well over a year of monthly observations
			cpiFrom := config.Date.AddDate(-2, 0, 0)
			md.cpi = o.fetchMacroSeries(ctx, market.FRED.CPI, cpiFrom, config.Date, records, thinking)
			md.macroSeen = md.policy.Len() > 0 || md.longRate.Len() > 0 || md.cpi.Len() > 0

			if market.ValuationSource == "multpl" && o.valuation != nil {
				result, err := o.fetcher.Fetch(ctx, "SP500_PER", fetch.ProviderFunc(func(ctx context.Context) (contracts.TimeSeries, error) {
					return o.valuation.FetchSP500PER(ctx)
				}))
				if err != nil {
					thinking.Add("fetch", "%s valuation unavailable: %v", market.Country, err)
				} else {
					md.per = result.Series
					md.valSeen = true
					records["SP500_PER"] = report.SeriesRecord{Series: result.Series, Stale: result.Stale, AgeDays: result.AgeDays}
				}
			}
		} else {
			thinking.Add("fetch", "%s macro skipped by request", market.Country)
		}

		data = append(data, md)
	}

	return data, records, nil
}

// fetchMacroSeries fetches one FRED series, treating failure as absence.
func (o *Orchestrator) fetchMacroSeries(ctx context.Context, seriesID string, from, to time.Time, records map[string]report.SeriesRecord, thinking *contracts.ThinkingLog) contracts.TimeSeries {
	if seriesID == "" {
		return contracts.TimeSeries{}
	}

	result, err := o.fetcher.Fetch(ctx, seriesID, fetch.ProviderFunc(func(ctx context.Context) (contracts.TimeSeries, error) {
		return o.macro.FetchSeries(ctx, seriesID, from, to)
	}))
	if err != nil {
		thinking.Add("fetch", "macro series %s unavailable, treated as neutral: %v", seriesID, err)
		o.logger.WithError(err).WithField("series_id", seriesID).Warn("Macro series unavailable")
		return contracts.TimeSeries{}
	}

	records[seriesID] = report.SeriesRecord{Series: result.Series, Stale: result.Stale, AgeDays: result.AgeDays}
	thinking.Add("fetch", "macro series %s: %d points, stale=%v", seriesID, result.Series.Len(), result.Stale)
	return result.Series
}

// runAnalysis computes features, scores, and narration for every market and
// timeframe.
func (o *Orchestrator) runAnalysis(ctx context.Context, data []marketData, thinking *contracts.ThinkingLog) (map[string]contracts.ReportEntry, error) {
	o.logger.Info("Running stage: analyze")

	entries := make(map[string]contracts.ReportEntry)

	for _, md := range data {
		var macroFeat *contracts.MacroFeatures
		if md.macroSeen {
			feat := technical.ComputeMacro(md.market.Country, md.policy, md.longRate, md.cpi)
			macroFeat = &feat
		}

		var valFeat *contracts.ValuationFeatures
		if md.valSeen {
			feat := technical.ComputeValuation(md.market.Country, md.per)
			valFeat = &feat
		}

		for _, tf := range o.cfg.Timeframes {
			window := md.prices.Series.Tail(tf.LookbackDays)

			techFeat, err := technical.ComputeFeatures(window)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", md.market.Country, tf.Name, err)
			}

			score := scoring.Compute(md.market.Country, tf.Name, tf.Weights, techFeat, macroFeat, valFeat)
			thinking.Add("score", "%s/%s raw=%.2f level=%+d", md.market.Country, tf.Name, score.Raw, int(score.Level))
			for _, in := range score.Inputs {
				thinking.Add("score", "%s/%s signal %s: %.2f x %.2f = %.2f (missing=%v)",
					md.market.Country, tf.Name, in.Name, in.Signal, in.Weight, in.Contribution, in.Missing)
			}

			narration, err := o.narrator.Narrate(ctx, narrate.Input{
				Country:      md.market.Country,
				Timeframe:    tf.Name,
				Technical:    techFeat,
				Macro:        macroFeat,
				Valuation:    valFeat,
				Score:        score,
				Stale:        md.prices.Stale,
				StaleAgeDays: md.prices.AgeDays,
			})
			if err != nil {
				return nil, fmt.Errorf("narrate %s/%s: %w", md.market.Country, tf.Name, err)
			}
			thinking.Add("narrate", "%s/%s narration source=%s", md.market.Country, tf.Name, narration.Source)
			if narration.FallbackReason != "" {
				thinking.Add("narrate", "%s/%s fell back to template: %s", md.market.Country, tf.Name, narration.FallbackReason)
			}

			entries[contracts.EntryKey(md.market.Country, tf.Name)] = contracts.ReportEntry{
				Country:      md.market.Country,
				Timeframe:    tf.Name,
				Technical:    techFeat,
				Macro:        macroFeat,
				Valuation:    valFeat,
				Score:        score,
				Narration:    narration,
				Stale:        md.prices.Stale,
				StaleAgeDays: md.prices.AgeDays,
			}
		}
	}

	return entries, nil
}

// FetchOnly runs just the fetch stage and writes the market data artifact.
// Returns the artifact path, empty in dry run mode.
func (o *Orchestrator) FetchOnly(ctx context.Context, config RunConfig) (string, error) {
	var thinking contracts.ThinkingLog

	_, records, err := o.runFetch(ctx, config, &thinking)
	if err != nil {
		return "", err
	}

	if config.DryRun {
		o.logger.Info("Skipping artifact write (dry run mode)")
		return "", nil
	}

	md := &report.MarketData{GeneratedAt: time.Now().UTC(), Series: records}
	return o.writer.WriteMarketData(md)
}

// AnalyzeFromMarketData rebuilds pipeline state from a previously written
// market data artifact and runs the analysis stages against it.
func (o *Orchestrator) AnalyzeFromMarketData(ctx context.Context, md *report.MarketData, config RunConfig) (*RunResult, error) {
	startTime := time.Now()

	result := &RunResult{
		RunID:           config.RunID,
		Date:            config.Date,
		CompletedStages: []string{"load"},
	}

	var thinking contracts.ThinkingLog
	thinking.Add("load", "analyzing market data generated at %s", md.GeneratedAt.Format(time.RFC3339))

	data := make([]marketData, 0, len(o.cfg.Markets))
	for _, market := range o.cfg.Markets {
		rec, ok := md.Series[market.IndexSymbol]
		if !ok {
			result.Error = fmt.Errorf("market data has no series for %s", market.IndexSymbol)
			return result, result.Error
		}

		d := marketData{
			market: market,
			prices: fetch.Result{Series: rec.Series, Stale: rec.Stale, AgeDays: rec.AgeDays},
		}

		if policy, ok := md.Series[market.FRED.PolicyRate]; ok {
			d.policy = policy.Series
		}
		if longRate, ok := md.Series[market.FRED.LongTermRate]; ok {
			d.longRate = longRate.Series
		}
		if cpi, ok := md.Series[market.FRED.CPI]; ok {
			d.cpi = cpi.Series
		}
		d.macroSeen = d.policy.Len() > 0 || d.longRate.Len() > 0 || d.cpi.Len() > 0

		if market.ValuationSource == "multpl" {
			if per, ok := md.Series["SP500_PER"]; ok {
				d.per = per.Series
				d.valSeen = true
			}
		}

		data = append(data, d)
	}

	entries, err := o.runAnalysis(ctx, data, &thinking)
	if err != nil {
		result.Error = fmt.Errorf("analysis failed: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, "analyze")

	rep, err := report.Assemble(o.cfg, entries, thinking, o.configHash)
	if err != nil {
		result.Error = fmt.Errorf("assemble failed: %w", err)
		return result, result.Error
	}
	result.Report = rep
	result.CompletedStages = append(result.CompletedStages, "assemble")

	if !config.DryRun {
		aPath, err := o.writer.WriteAnalysis(rep)
		if err != nil {
			result.Error = fmt.Errorf("write analysis failed: %w", err)
			return result, result.Error
		}
		result.AnalysisPath = aPath
		result.CompletedStages = append(result.CompletedStages, "write")
	}

	result.Success = true
	result.Duration = time.Since(startTime)
	return result, nil
}

// GenerateRunID generates a unique run ID.
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", time.Now().Format("20060102_150405"))
}

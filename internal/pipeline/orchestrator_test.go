package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/fallback"
	"github.com/wonny/marketbrief/internal/fetch"
	"github.com/wonny/marketbrief/internal/narrate"
	"github.com/wonny/marketbrief/internal/report"
	"github.com/wonny/marketbrief/internal/reportconfig"
	"github.com/wonny/marketbrief/pkg/config"
	"github.com/wonny/marketbrief/pkg/logger"
)

type fakePrices struct {
	err error
}

func (f *fakePrices) FetchDaily(_ context.Context, symbol string, from, to time.Time) (contracts.TimeSeries, error) {
	if f.err != nil {
		return contracts.TimeSeries{}, f.err
	}

	// 250 rising daily closes ending at the run date
	series := contracts.TimeSeries{Symbol: symbol}
	start := to.AddDate(0, 0, -249)
	for i := 0; i < 250; i++ {
		series.Points = append(series.Points, contracts.Point{
			Date:   start.AddDate(0, 0, i),
			Close:  4000 + float64(i),
			Volume: 2.5e9,
		})
	}
	return series, nil
}

type fakeMacro struct {
	failing map[string]bool
}

func (f *fakeMacro) FetchSeries(_ context.Context, seriesID string, from, to time.Time) (contracts.TimeSeries, error) {
	if f.failing[seriesID] {
		return contracts.TimeSeries{}, errors.New("fred unavailable")
	}

	series := contracts.TimeSeries{Symbol: seriesID}
	switch seriesID {
	case "CPIAUCSL":
		// 26 monthly points with decelerating growth: YoY inflation falling
		value := 300.0
		start := to.AddDate(0, -25, 0)
		for i := 0; i < 26; i++ {
			series.Points = append(series.Points, contracts.Point{
				Date:  start.AddDate(0, i, 0),
				Close: value,
			})
			value *= 1 + 0.006 - 0.0002*float64(i)
		}
	default:
		// Flat daily rate series
		start := to.AddDate(0, 0, -39)
		for i := 0; i < 40; i++ {
			series.Points = append(series.Points, contracts.Point{
				Date:  start.AddDate(0, 0, i),
				Close: 4.0,
			})
		}
	}
	return series, nil
}

type fakeValuation struct{}

func (f *fakeValuation) FetchSP500PER(_ context.Context) (contracts.TimeSeries, error) {
	series := contracts.TimeSeries{Symbol: "SP500_PER"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		series.Points = append(series.Points, contracts.Point{
			Date:  start.AddDate(0, i, 0),
			Close: 28.5,
		})
	}
	return series, nil
}

func pipelineConfig() *reportconfig.Config {
	return &reportconfig.Config{
		Meta: reportconfig.Meta{ReportID: "daily-market-brief", Version: "1.0"},
		Markets: []reportconfig.Market{
			{
				Country:     "US",
				IndexSymbol: "^spx",
				FRED: reportconfig.FRED{
					PolicyRate:   "DFF",
					LongTermRate: "DGS10",
					CPI:          "CPIAUCSL",
				},
				ValuationSource: "multpl",
			},
		},
		Timeframes: []reportconfig.Timeframe{
			{
				Name:         "short",
				LookbackDays: 90,
				Weights: reportconfig.Weights{
					Trend: 0.4, Volume: 0.1, PolicyRate: 0.2, CPI: 0.2, Valuation: 0.1,
				},
			},
			{
				Name:         "long",
				LookbackDays: 365,
				Weights: reportconfig.Weights{
					Trend: 0.2, MA200Distance: 0.2, PolicyRate: 0.2, CPI: 0.2, Valuation: 0.2,
				},
			},
		},
		Narration: reportconfig.Narration{BearishMax: -1, BullishMin: 1},
		Fallback:  reportconfig.Fallback{MaxAgeDays: 7},
	}
}

func testOrchestrator(t *testing.T, cfg *reportconfig.Config, prices PriceSource) (*Orchestrator, string) {
	t.Helper()

	log := logger.New(&config.Config{Env: "development", LogLevel: "error"})
	store := fallback.NewStore(t.TempDir(), log)
	fetcher := fetch.NewFetcher(store, log, cfg.Fallback.MaxAgeDays)
	outDir := t.TempDir()
	writer := report.NewWriter(outDir, log)
	narrator := narrate.NewTemplateNarrator(cfg.Narration)

	o := NewOrchestrator(cfg, "testhash", fetcher, prices, &fakeMacro{}, &fakeValuation{}, narrator, writer, log)
	return o, outDir
}

func runDate() time.Time {
	return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
}

func TestRunEndToEnd(t *testing.T) {
	cfg := pipelineConfig()
	o, outDir := testOrchestrator(t, cfg, &fakePrices{})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_test"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Success {
		t.Fatal("Expected successful run")
	}

	if len(result.Report.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result.Report.Entries))
	}

	short, ok := result.Report.Entries["US/short"]
	if !ok {
		t.Fatal("Expected US/short entry")
	}

	// Rising market, falling inflation, flat rates: bullish
	if short.Score.Level < contracts.ScoreBullish {
		t.Errorf("Expected bullish short-term score, got %d (raw=%.2f)", short.Score.Level, short.Score.Raw)
	}
	if short.Technical.TrendDirection != contracts.TrendUp {
		t.Errorf("Expected upward trend, got %d", short.Technical.TrendDirection)
	}
	if short.Macro == nil || short.Macro.CPITrend != contracts.TrendDown {
		t.Error("Expected falling CPI trend")
	}
	if short.Narration.Conclusion == "" {
		t.Error("Expected narration")
	}
	if short.Stale {
		t.Error("Expected fresh entry")
	}

	long, ok := result.Report.Entries["US/long"]
	if !ok {
		t.Fatal("Expected US/long entry")
	}
	// 250 points cover the 200-day average for the long timeframe
	if long.Technical.MA200 == nil {
		t.Error("Expected MA200 for long timeframe")
	}
	// 90-point window cannot carry a 200-day average
	if short.Technical.MA200 != nil {
		t.Error("Expected nil MA200 for short timeframe")
	}

	// Artifacts on disk
	for _, name := range []string{report.MarketDataFile, report.AnalysisFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("Expected artifact %s: %v", name, err)
		}
	}

	if len(result.Report.Thinking.Entries) == 0 {
		t.Error("Expected thinking log entries")
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := pipelineConfig()
	o, outDir := testOrchestrator(t, cfg, &fakePrices{})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_dry", DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Report == nil {
		t.Fatal("Expected report even in dry run")
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty output dir in dry run, found %d files", len(entries))
	}
}

func TestRunPriceFetchFailureAborts(t *testing.T) {
	cfg := pipelineConfig()
	o, _ := testOrchestrator(t, cfg, &fakePrices{err: errors.New("stooq down")})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_fail"})
	if err == nil {
		t.Fatal("Expected error when prices unavailable with no snapshot")
	}
	if result.Success {
		t.Error("Expected failed run")
	}
	if !errors.Is(err, fetch.ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRunPriceFallbackMarksStale(t *testing.T) {
	cfg := pipelineConfig()

	log := logger.New(&config.Config{Env: "development", LogLevel: "error"})
	store := fallback.NewStore(t.TempDir(), log)
	fetcher := fetch.NewFetcher(store, log, 7)
	writer := report.NewWriter(t.TempDir(), log)
	narrator := narrate.NewTemplateNarrator(cfg.Narration)

	// Seed the snapshot with a good series, then break the provider
	good := &fakePrices{}
	series, _ := good.FetchDaily(context.Background(), "^spx", runDate().AddDate(0, 0, -400), runDate())
	if err := store.Save("^spx", series); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator(cfg, "testhash", fetcher, &fakePrices{err: errors.New("stooq down")},
		&fakeMacro{}, &fakeValuation{}, narrator, writer, log)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_stale"})
	if err != nil {
		t.Fatalf("Expected fallback run to succeed: %v", err)
	}

	short := result.Report.Entries["US/short"]
	if !short.Stale {
		t.Error("Expected stale entry from fallback snapshot")
	}
	if !strings.Contains(short.Narration.Conclusion, "cached data") {
		t.Errorf("Expected stale note in narration, got %q", short.Narration.Conclusion)
	}
}

// degradedNarrator stands in for an LLM narrator whose every attempt failed.
type degradedNarrator struct {
	inner narrate.Narrator
}

func (n *degradedNarrator) Narrate(ctx context.Context, in narrate.Input) (contracts.Narration, error) {
	narration, err := n.inner.Narrate(ctx, in)
	if err != nil {
		return narration, err
	}
	narration.FallbackReason = "llm request failed: rate limited"
	return narration, nil
}

func TestRunRecordsNarrationFallbackReason(t *testing.T) {
	cfg := pipelineConfig()

	log := logger.New(&config.Config{Env: "development", LogLevel: "error"})
	store := fallback.NewStore(t.TempDir(), log)
	fetcher := fetch.NewFetcher(store, log, 7)
	writer := report.NewWriter(t.TempDir(), log)
	narrator := &degradedNarrator{inner: narrate.NewTemplateNarrator(cfg.Narration)}

	o := NewOrchestrator(cfg, "testhash", fetcher, &fakePrices{}, &fakeMacro{}, &fakeValuation{}, narrator, writer, log)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_degraded"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	short := result.Report.Entries["US/short"]
	if short.Narration.FallbackReason == "" {
		t.Fatal("Expected fallback reason on entry")
	}

	found := false
	for _, e := range result.Report.Thinking.Entries {
		if e.Stage == "narrate" && strings.Contains(e.Message, "fell back to template: llm request failed: rate limited") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected thinking log entry with the narration fallback reason")
	}
}

func TestRunMacroFailureDegradesToNeutral(t *testing.T) {
	cfg := pipelineConfig()

	log := logger.New(&config.Config{Env: "development", LogLevel: "error"})
	store := fallback.NewStore(t.TempDir(), log)
	fetcher := fetch.NewFetcher(store, log, 7)
	writer := report.NewWriter(t.TempDir(), log)
	narrator := narrate.NewTemplateNarrator(cfg.Narration)

	macro := &fakeMacro{failing: map[string]bool{"DFF": true, "DGS10": true, "CPIAUCSL": true}}
	o := NewOrchestrator(cfg, "testhash", fetcher, &fakePrices{}, macro, &fakeValuation{}, narrator, writer, log)

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_nomacro"})
	if err != nil {
		t.Fatalf("Expected run to survive macro failure: %v", err)
	}

	short := result.Report.Entries["US/short"]
	if short.Macro != nil {
		t.Error("Expected nil macro features when all series fail")
	}

	// Macro inputs contribute nothing
	for _, in := range short.Score.Inputs {
		if (in.Name == "policy_rate" || in.Name == "cpi") && in.Contribution != 0 {
			t.Errorf("Expected zero %s contribution, got %v", in.Name, in.Contribution)
		}
	}
}

func TestRunSkipMacro(t *testing.T) {
	cfg := pipelineConfig()
	o, _ := testOrchestrator(t, cfg, &fakePrices{})

	result, err := o.Run(context.Background(), RunConfig{Date: runDate(), RunID: "run_skip", DryRun: true, SkipMacro: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	short := result.Report.Entries["US/short"]
	if short.Macro != nil || short.Valuation != nil {
		t.Error("Expected no macro or valuation features with SkipMacro")
	}
}

func TestFetchOnlyThenAnalyze(t *testing.T) {
	cfg := pipelineConfig()
	o, outDir := testOrchestrator(t, cfg, &fakePrices{})

	mdPath, err := o.FetchOnly(context.Background(), RunConfig{Date: runDate(), RunID: "run_fetch"})
	if err != nil {
		t.Fatalf("FetchOnly failed: %v", err)
	}
	if filepath.Base(mdPath) != report.MarketDataFile {
		t.Errorf("Expected %s, got %s", report.MarketDataFile, mdPath)
	}

	data, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	var md report.MarketData
	if err := json.Unmarshal(data, &md); err != nil {
		t.Fatal(err)
	}
	if _, ok := md.Series["^spx"]; !ok {
		t.Fatal("Expected ^spx series in market data")
	}

	result, err := o.AnalyzeFromMarketData(context.Background(), &md, RunConfig{Date: runDate(), RunID: "run_analyze"})
	if err != nil {
		t.Fatalf("AnalyzeFromMarketData failed: %v", err)
	}
	if len(result.Report.Entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(result.Report.Entries))
	}

	if _, err := os.Stat(filepath.Join(outDir, report.AnalysisFile)); err != nil {
		t.Errorf("Expected analysis artifact: %v", err)
	}
}

func TestAnalyzeFromMarketDataMissingSeries(t *testing.T) {
	cfg := pipelineConfig()
	o, _ := testOrchestrator(t, cfg, &fakePrices{})

	md := &report.MarketData{Series: map[string]report.SeriesRecord{}}
	_, err := o.AnalyzeFromMarketData(context.Background(), md, RunConfig{Date: runDate()})
	if err == nil {
		t.Fatal("Expected error when price series missing from artifact")
	}
}

func TestGenerateRunID(t *testing.T) {
	id := GenerateRunID()
	if len(id) == 0 {
		t.Fatal("Expected non-empty run ID")
	}
	if id[:4] != "run_" {
		t.Errorf("Expected run_ prefix, got %s", id)
	}
}

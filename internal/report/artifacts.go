package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/pkg/logger"
)

// Artifact file names inside the output directory.
const (
	MarketDataFile = "market_data.json"
	AnalysisFile   = "analysis_result.json"
)

// SeriesRecord is one fetched series plus its freshness, as persisted in
// the market data artifact.
type SeriesRecord struct {
	Series  contracts.TimeSeries `json:"series"`
	Stale   bool                 `json:"stale,omitempty"`
	AgeDays int                  `json:"age_days,omitempty"`
}

// MarketData is the raw-data artifact written next to the analysis result.
type MarketData struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Series      map[string]SeriesRecord `json:"series"`
}

// Writer persists run artifacts as JSON files. Writes go through a temp
// file and rename so a crash never leaves a truncated artifact.
type Writer struct {
	dir    string
	logger *logger.Logger
}

// NewWriter creates an artifact writer rooted at dir.
func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{dir: dir, logger: log}
}

// WriteMarketData writes the raw data artifact and returns its path.
func (w *Writer) WriteMarketData(md *MarketData) (string, error) {
	return w.write(MarketDataFile, md)
}

// WriteAnalysis writes the analysis artifact and returns its path.
func (w *Writer) WriteAnalysis(report *contracts.Report) (string, error) {
	return w.write(AnalysisFile, report)
}

func (w *Writer) write(name string, v interface{}) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir failed: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s failed: %w", name, err)
	}

	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s failed: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename %s failed: %w", name, err)
	}

	w.logger.WithFields(map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	}).Info("Wrote artifact")
	return path, nil
}

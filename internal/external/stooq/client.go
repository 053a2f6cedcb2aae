package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/internal/fetch"
	"github.com/wonny/marketbrief/pkg/httputil"
	"github.com/wonny/marketbrief/pkg/logger"
)

// Client fetches daily index prices from Stooq. All Stooq calls go through
// this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Stooq client.
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    "https://stooq.com",
	}
}

// FetchDaily fetches daily OHLCV bars for a symbol in the given date range.
// Symbols use Stooq notation, e.g. "^spx" for the S&P 500.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (contracts.TimeSeries, error) {
	params := url.Values{}
	params.Set("s", symbol)
	params.Set("d1", from.Format("20060102"))
	params.Set("d2", to.Format("20060102"))
	params.Set("i", "d")

	fullURL := fmt.Sprintf("%s/q/d/l/?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.TimeSeries{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("read response body failed: %w", err)
	}

	series, err := parseDailyCSV(symbol, string(body))
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  series.Len(),
	}).Debug("Fetched daily prices")
	return series, nil
}

// parseDailyCSV parses the Stooq CSV download format:
// Date,Open,High,Low,Close,Volume with one row per trading day. Stooq
// answers "No data" in the body for unknown symbols.
func parseDailyCSV(symbol, body string) (contracts.TimeSeries, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || strings.HasPrefix(trimmed, "No data") {
		return contracts.TimeSeries{}, fmt.Errorf("%w: %s", fetch.ErrInvalidSymbol, symbol)
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("csv parse failed: %w", err)
	}

	series := contracts.TimeSeries{Symbol: symbol}
	for i, rec := range records {
		if i == 0 || len(rec) < 5 {
			continue // Skip header
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue
		}

		open, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		high, _ := strconv.ParseFloat(rec[2], 64)
		low, _ := strconv.ParseFloat(rec[3], 64)
		closePrice, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			continue
		}

		var volume float64
		if len(rec) >= 6 {
			volume, _ = strconv.ParseFloat(rec[5], 64)
		}

		series.Points = append(series.Points, contracts.Point{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if series.Len() == 0 {
		return contracts.TimeSeries{}, fmt.Errorf("no parseable rows for symbol %s", symbol)
	}
	if err := series.Validate(); err != nil {
		return contracts.TimeSeries{}, err
	}

	return series, nil
}

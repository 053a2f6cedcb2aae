package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/pkg/httputil"
	"github.com/wonny/marketbrief/pkg/logger"
)

// Client fetches macro indicator series from the FRED API. All FRED calls
// go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new FRED client.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.stlouisfed.org/fred"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// observationsResponse mirrors the FRED series/observations JSON payload.
type observationsResponse struct {
	Observations []observation `json:"observations"`
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// FetchSeries fetches observations for a FRED series ID in the given range.
// Missing observations (value ".") are skipped.
func (c *Client) FetchSeries(ctx context.Context, seriesID string, from, to time.Time) (contracts.TimeSeries, error) {
	if c.apiKey == "" {
		return contracts.TimeSeries{}, fmt.Errorf("FRED API key not configured")
	}

	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", from.Format("2006-01-02"))
	params.Set("observation_end", to.Format("2006-01-02"))

	fullURL := fmt.Sprintf("%s/series/observations?%s", c.baseURL, params.Encode())

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

	series, err := parseObservations(seriesID, body)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"series_id": seriesID,
		"count":     series.Len(),
	}).Debug("Fetched FRED series")
	return series, nil
}

// parseObservations converts the FRED JSON payload into a time series.
func parseObservations(seriesID string, body []byte) (contracts.TimeSeries, error) {
	var payload observationsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("json parse failed: %w", err)
	}

	series := contracts.TimeSeries{Symbol: seriesID}
	for _, obs := range payload.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}

		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}

		series.Points = append(series.Points, contracts.Point{
			Date:  date,
			Close: value,
		})
	}

	if series.Len() == 0 {
		return contracts.TimeSeries{}, fmt.Errorf("no observations for series %s", seriesID)
	}
	if err := series.Validate(); err != nil {
		return contracts.TimeSeries{}, err
	}

	return series, nil
}

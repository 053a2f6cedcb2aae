package multpl

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/marketbrief/internal/contracts"
	"github.com/wonny/marketbrief/pkg/httputil"
	"github.com/wonny/marketbrief/pkg/logger"
)

// Client scrapes index-level valuation multiples from multpl.com. The site
// publishes a monthly S&P 500 PE ratio table; there is no API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new multpl.com client.
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    "https://www.multpl.com",
	}
}

// FetchSP500PER fetches the monthly S&P 500 PE ratio table. Points are
// returned in chronological order with the ratio in Close.
func (c *Client) FetchSP500PER(ctx context.Context) (contracts.TimeSeries, error) {
	fullURL := c.baseURL + "/s-p-500-pe-ratio/table/by-month"

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.TimeSeries{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return contracts.TimeSeries{}, fmt.Errorf("parse HTML failed: %w", err)
	}

	series, err := parsePERTable(doc)
	if err != nil {
		return contracts.TimeSeries{}, err
	}

	c.logger.WithField("count", series.Len()).Debug("Fetched S&P 500 PER table")
	return series, nil
}

// parsePERTable extracts date/value rows from the multpl data table. The
// table lists newest first; the result is sorted oldest first.
func parsePERTable(doc *goquery.Document) (contracts.TimeSeries, error) {
	series := contracts.TimeSeries{Symbol: "SP500_PER"}

	doc.Find("table#datatable tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return // Header row
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		date, err := time.Parse("Jan 2, 2006", dateText)
		if err != nil {
			return
		}

		// Current-month values carry an "estimate" annotation
		fields := strings.Fields(cells.Eq(1).Text())
		if len(fields) == 0 {
			return
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return
		}

		series.Points = append(series.Points, contracts.Point{
			Date:  date,
			Close: value,
		})
	})

	if series.Len() == 0 {
		return contracts.TimeSeries{}, fmt.Errorf("no PER rows found in table")
	}

	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})
	if err := series.Validate(); err != nil {
		return contracts.TimeSeries{}, err
	}

	return series, nil
}

package multpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/marketbrief/pkg/config"
	"github.com/wonny/marketbrief/pkg/httputil"
	"github.com/wonny/marketbrief/pkg/logger"
)

const sampleTable = `<html><body>
<table id="datatable">
<tr><th>Date</th><th>Value</th></tr>
<tr><td>Aug 1, 2026</td><td>28.91
 estimate</td></tr>
<tr><td>Jul 1, 2026</td><td>28.45</td></tr>
<tr><td>Jun 1, 2026</td><td>27.80</td></tr>
</table>
</body></html>`

func testDeps(t *testing.T) (*httputil.Client, *logger.Logger) {
	t.Helper()
	cfg := &config.Config{
		Env:         "development",
		LogLevel:    "error",
		HTTPTimeout: 5 * time.Second,
	}
	log := logger.New(cfg)
	return httputil.New(cfg, log).DisableRetry(), log
}

func TestParsePERTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatal(err)
	}

	series, err := parsePERTable(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if series.Len() != 3 {
		t.Fatalf("Expected 3 points, got %d", series.Len())
	}

	// Sorted oldest first
	if series.Points[0].Date.Format("2006-01-02") != "2026-06-01" {
		t.Errorf("Expected first date 2026-06-01, got %s", series.Points[0].Date.Format("2006-01-02"))
	}

	latest, ok := series.Latest()
	if !ok {
		t.Fatal("Expected latest point")
	}
	if latest.Close != 28.91 {
		t.Errorf("Expected latest PER 28.91, got %v", latest.Close)
	}
}

func TestParsePERTableSkipsBlankValueCells(t *testing.T) {
	body := `<html><body>
<table id="datatable">
<tr><th>Date</th><th>Value</th></tr>
<tr><td>Jul 1, 2026</td><td> </td></tr>
<tr><td>Jun 1, 2026</td><td>27.80</td></tr>
</table>
</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	series, err := parsePERTable(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if series.Len() != 1 {
		t.Errorf("Expected 1 point after skipping blank cell, got %d", series.Len())
	}
}

func TestParsePERTableEmpty(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>no table</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := parsePERTable(doc); err == nil {
		t.Error("Expected error when table is missing")
	}
}

func TestFetchSP500PER(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s-p-500-pe-ratio/table/by-month" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(sampleTable))
	}))
	defer server.Close()

	httpClient, log := testDeps(t)
	client := NewClient(httpClient, log)
	client.baseURL = server.URL

	series, err := client.FetchSP500PER(context.Background())
	if err != nil {
		t.Fatalf("FetchSP500PER failed: %v", err)
	}
	if series.Len() != 3 {
		t.Errorf("Expected 3 points, got %d", series.Len())
	}
}

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testAggregator(instances []string) *Aggregator {
	return &Aggregator{
		rotation:   newRotationAt(instances, 0),
		scraper:    newScraper("test-agent", 2*time.Second),
		maxResults: perAttemptCap,
	}
}

func searxResultsPage(n int) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><div id="results">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<article class="result"><h3><a href="https://example.com/page-%d">Result %d</a></h3><p class="content">Snippet %d</p></article>`, i, i, i)
	}
	sb.WriteString(`</div></body></html>`)
	return sb.String()
}

func TestSearchReturnsBoundedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "weather in Jakarta" {
			t.Errorf("unexpected query: %s", r.URL.Query().Get("q"))
		}
		if r.URL.Query().Get("safesearch") != "0" {
			t.Errorf("expected safesearch=0, got %s", r.URL.Query().Get("safesearch"))
		}
		fmt.Fprint(w, searxResultsPage(12))
	}))
	defer srv.Close()

	resp, err := testAggregator([]string{srv.URL}).Search(context.Background(), "weather in Jakarta", "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) < 1 || len(resp.Results) > 8 {
		t.Fatalf("expected 1..8 results, got %d", len(resp.Results))
	}
	if resp.NumberOfResults != len(resp.Results) {
		t.Fatalf("number_of_results %d != len(results) %d", resp.NumberOfResults, len(resp.Results))
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Fatalf("results not sorted by score desc at index %d", i)
		}
	}
	for _, r := range resp.Results {
		if r.Category != "general" {
			t.Fatalf("expected advisory category to default to general, got %q", r.Category)
		}
		if r.Engine != engineSearx {
			t.Fatalf("expected engine %q, got %q", engineSearx, r.Engine)
		}
	}
}

func TestSearchMissingQuery(t *testing.T) {
	if _, err := testAggregator(nil).Search(context.Background(), "   ", "general"); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestSearchAllInstancesFailYieldsSingleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := testAggregator([]string{srv.URL}).Search(context.Background(), "anything", "general")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected exactly one fallback result, got %d", len(resp.Results))
	}
	if resp.Results[0].Engine != engineFallback {
		t.Fatalf("expected engine fallback, got %q", resp.Results[0].Engine)
	}
	if resp.Results[0].Score != 0.5 {
		t.Fatalf("expected fallback score 0.5, got %v", resp.Results[0].Score)
	}
	if len(resp.UnresponsiveEngines) == 0 {
		t.Fatalf("expected unresponsive engine to be recorded")
	}
}

func TestSearchRetriesRotateToNextInstance(t *testing.T) {
	var hits []string
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits = append(hits, "empty")
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer empty.Close()
	full := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits = append(hits, "full")
		fmt.Fprint(w, searxResultsPage(2))
	}))
	defer full.Close()

	resp, err := testAggregator([]string{empty.URL, full.URL}).Search(context.Background(), "rotate", "general")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 || hits[0] != "empty" || hits[1] != "full" {
		t.Fatalf("expected retry to rotate to the next instance, got hits %v", hits)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results from second instance, got %d", len(resp.Results))
	}
}

func TestSearchAnchorFallbackScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var sb strings.Builder
		sb.WriteString("<html><body>")
		sb.WriteString(`<a href="/internal">nav</a>`)
		for i := 0; i < 7; i++ {
			fmt.Fprintf(&sb, `<a href="https://example.org/item-%d">A qualifying anchor number %d</a>`, i, i)
		}
		sb.WriteString("</body></html>")
		fmt.Fprint(w, sb.String())
	}))
	defer srv.Close()

	resp, err := testAggregator([]string{srv.URL}).Search(context.Background(), "weather in Jakarta", "general")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("expected anchor scan capped at 5 results, got %d", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.Engine != engineSearxFallback {
			t.Fatalf("expected engine %q, got %q", engineSearxFallback, r.Engine)
		}
	}
}

func TestDedupeByURL(t *testing.T) {
	results := dedupeByURL([]SearchResult{
		{Title: "a", URL: "https://x"},
		{Title: "b", URL: "https://x"},
		{Title: "c", URL: ""},
		{Title: "d", URL: ""},
		{Title: "e", URL: "https://y"},
	})
	if len(results) != 4 {
		t.Fatalf("expected 4 results after dedupe, got %d", len(results))
	}
	if results[0].Title != "a" {
		t.Fatalf("dedupe should keep the first occurrence, got %q", results[0].Title)
	}
	empties := 0
	for _, r := range results {
		if r.URL == "" {
			empties++
		}
	}
	if empties != 2 {
		t.Fatalf("empty URLs must not be deduplicated against each other, got %d", empties)
	}
}

func TestRotationVisitsEachInstanceOnce(t *testing.T) {
	instances := []string{"a", "b", "c"}
	r := newRotationAt(instances, 1)

	var first []string
	for i := 0; i < len(instances); i++ {
		first = append(first, r.Next())
	}
	seen := map[string]bool{}
	for _, v := range first {
		if seen[v] {
			t.Fatalf("instance %q returned twice in one cycle: %v", v, first)
		}
		seen[v] = true
	}

	var second []string
	for i := 0; i < len(instances); i++ {
		second = append(second, r.Next())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected cycles to repeat, got %v then %v", first, second)
		}
	}
}

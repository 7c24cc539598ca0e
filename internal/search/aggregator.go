package search

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/logger"
)

const (
	engineFallback = "fallback"
	maxAttempts    = 3
)

// Aggregator produces ranked, deduplicated search results from a set of
// interchangeable searx instances, tolerating unreliable mirrors.
type Aggregator struct {
	rotation   *Rotation
	scraper    *scraper
	maxResults int
}

func NewAggregator(cfg config.SearchConfig) *Aggregator {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = perAttemptCap
	}
	return &Aggregator{
		rotation:   NewRotation(cfg.Instances),
		scraper:    newScraper(cfg.UserAgent, cfg.Timeout()),
		maxResults: maxResults,
	}
}

// Search queries one instance per attempt, rotating on empty results, up
// to maxAttempts times. Scrape failures never surface to the caller; only
// a missing query is an error.
func (a *Aggregator) Search(ctx context.Context, query, category string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("missing query")
	}
	if category == "" {
		category = "general"
	}

	var (
		results      []SearchResult
		unresponsive []string
	)
	unresponsiveSeen := map[string]bool{}

	attempts := maxAttempts
	if a.rotation.Size() == 0 {
		attempts = 0
	}
	for attempt := 0; attempt < attempts; attempt++ {
		instance := a.rotation.Next()
		found, err := a.scraper.scrape(ctx, instance, query)
		if err != nil {
			logger.Debug("[Search] attempt %d/%d against %s failed: %v", attempt+1, attempts, instance, err)
			if host := hostOf(instance); !unresponsiveSeen[host] {
				unresponsiveSeen[host] = true
				unresponsive = append(unresponsive, host)
			}
			continue
		}
		if len(found) > 0 {
			// Sequential-replace: the first non-empty attempt wins,
			// later instances are not queried or merged.
			results = found
			break
		}
		logger.Debug("[Search] attempt %d/%d against %s yielded no results", attempt+1, attempts, instance)
	}

	if len(results) == 0 {
		results = []SearchResult{fallbackResult(query)}
	}

	for i := range results {
		results[i].Category = category
	}

	results = dedupeByURL(results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > a.maxResults {
		results = results[:a.maxResults]
	}

	if unresponsive == nil {
		unresponsive = []string{}
	}
	return &SearchResponse{
		Query:               query,
		NumberOfResults:     len(results),
		Results:             results,
		UnresponsiveEngines: unresponsive,
	}, nil
}

// dedupeByURL drops results whose exact URL was already seen. Empty URLs
// are exempt from the uniqueness filter, so several empty-URL entries all
// survive.
func dedupeByURL(results []SearchResult) []SearchResult {
	seen := make(map[string]bool, len(results))
	unique := results[:0]
	for _, r := range results {
		if r.URL != "" {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
		}
		unique = append(unique, r)
	}
	return unique
}

func fallbackResult(query string) SearchResult {
	return SearchResult{
		Title:   fmt.Sprintf("Web search for %q", query),
		URL:     "https://duckduckgo.com/?q=" + url.QueryEscape(query),
		Content: fmt.Sprintf("No search instance could be reached. Follow the link to search for %q directly.", query),
		Engine:  engineFallback,
		Score:   0.5,
	}
}

func hostOf(instance string) string {
	if parsed, err := url.Parse(instance); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return instance
}

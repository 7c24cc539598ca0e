package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	engineSearx         = "searxng"
	engineSearxFallback = "searxng-fallback"

	// anchor-scan fallback caps at 5 hits, regular parse at 8
	fallbackAnchorCap = 5
	perAttemptCap     = 8
)

// resultSelectors are tried in priority order; the first selector that
// matches at least one node wins. Different searx themes render results
// with different markup, so a single selector is not enough.
var resultSelectors = []string{
	"#urls article.result",
	"article.result",
	"#results .result",
	".result",
}

var snippetSelectors = []string{
	"p.content",
	".content",
	".snippet",
	".description",
	"p",
}

var redirectPathPattern = regexp.MustCompile(`(?i)(?:^|/)(?:url|redirect|goto|r)/?$`)

type scraper struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func newScraper(userAgent string, timeout time.Duration) *scraper {
	return &scraper{
		client:    &http.Client{},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// scrape runs one search against a single searx instance. Failures are
// returned as errors; the aggregator treats them as zero results.
func (s *scraper) scrape(ctx context.Context, instance, query string) ([]SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("category_general", "1")
	params.Set("language", "auto")
	params.Set("time_range", "")
	params.Set("safesearch", "0")
	params.Set("theme", "simple")

	searchURL := strings.TrimRight(instance, "/") + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("instance %s returned status %d", instance, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse response from %s: %w", instance, err)
	}

	origin, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	results := parseResults(doc, origin)
	if len(results) == 0 {
		results = scanAnchors(doc)
	}
	if len(results) > perAttemptCap {
		results = results[:perAttemptCap]
	}
	return results, nil
}

func parseResults(doc *goquery.Document, origin *url.URL) []SearchResult {
	var nodes *goquery.Selection
	for _, selector := range resultSelectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			nodes = sel
			break
		}
	}
	if nodes == nil {
		return nil
	}

	var results []SearchResult
	nodes.Each(func(i int, node *goquery.Selection) {
		link := node.Find("h3 a").First()
		if link.Length() == 0 {
			link = node.Find("h4 a, a").First()
		}
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		href = normalizeLink(href, origin)

		if title == "" && href == "" {
			return
		}

		var snippet string
		for _, selector := range snippetSelectors {
			if text := strings.TrimSpace(node.Find(selector).First().Text()); text != "" {
				snippet = text
				break
			}
		}

		results = append(results, SearchResult{
			Title:   title,
			URL:     href,
			Content: snippet,
			Engine:  engineSearx,
			Score:   0.9 - 0.05*float64(i),
		})
	})
	return results
}

// scanAnchors is the last-ditch parse: grab any anchor with substantial
// link text and an absolute URL, capped at fallbackAnchorCap.
func scanAnchors(doc *goquery.Document) []SearchResult {
	var results []SearchResult
	doc.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		if len(text) <= 10 {
			return true
		}
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return true
		}
		results = append(results, SearchResult{
			Title:   text,
			URL:     href,
			Content: text,
			Engine:  engineSearxFallback,
			Score:   0.4 - 0.02*float64(len(results)),
		})
		return len(results) < fallbackAnchorCap
	})
	return results
}

// normalizeLink rewrites relative links against the instance origin and
// unwraps redirector links to the embedded target URL.
func normalizeLink(href string, origin *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	resolved := origin.ResolveReference(parsed)

	if redirectPathPattern.MatchString(resolved.Path) {
		q := resolved.Query()
		for _, key := range []string{"url", "u", "q"} {
			if target := q.Get(key); target != "" {
				if decoded, err := url.QueryUnescape(target); err == nil {
					return decoded
				}
				return target
			}
		}
	}
	return resolved.String()
}

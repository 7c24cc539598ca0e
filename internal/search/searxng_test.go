package search

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustOrigin(t *testing.T, raw string) *url.URL {
	t.Helper()
	origin, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse origin: %v", err)
	}
	return origin
}

func TestNormalizeLinkResolvesRelative(t *testing.T) {
	origin := mustOrigin(t, "https://searx.example.org")
	got := normalizeLink("/about/page", origin)
	if got != "https://searx.example.org/about/page" {
		t.Fatalf("unexpected resolved link: %s", got)
	}
}

func TestNormalizeLinkDecodesRedirector(t *testing.T) {
	origin := mustOrigin(t, "https://searx.example.org")
	got := normalizeLink("/url?url=https%3A%2F%2Freal.example%2Fpage", origin)
	if got != "https://real.example/page" {
		t.Fatalf("expected redirector target, got %s", got)
	}

	got = normalizeLink("https://searx.example.org/redirect?u=https%3A%2F%2Fother.example%2F", origin)
	if got != "https://other.example/" {
		t.Fatalf("expected redirector target, got %s", got)
	}
}

func TestParseResultsTriesSelectorsInOrder(t *testing.T) {
	// No article.result nodes; the plain .result selector must match.
	html := `<html><body>
		<div class="result"><h3><a href="https://a.example/one">One</a></h3><span class="content">first</span></div>
		<div class="result"><h3><a href="/two">Two</a></h3><p>second</p></div>
		<div class="result"><span>no link, no title</span></div>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	results := parseResults(doc, mustOrigin(t, "https://searx.example.org"))
	if len(results) != 2 {
		t.Fatalf("expected 2 results (node without title and link skipped), got %d", len(results))
	}
	if results[0].Title != "One" || results[0].Content != "first" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].URL != "https://searx.example.org/two" {
		t.Fatalf("relative link not absolutized: %s", results[1].URL)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected position-based descending scores: %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestScanAnchorsSkipsShortTextAndRelativeLinks(t *testing.T) {
	html := `<html><body>
		<a href="https://a.example/long">this text is long enough</a>
		<a href="https://a.example/short">short</a>
		<a href="/relative">relative link with long text</a>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	results := scanAnchors(doc)
	if len(results) != 1 {
		t.Fatalf("expected 1 qualifying anchor, got %d", len(results))
	}
	if results[0].URL != "https://a.example/long" {
		t.Fatalf("unexpected anchor url: %s", results[0].URL)
	}
	if results[0].Engine != engineSearxFallback {
		t.Fatalf("unexpected engine: %s", results[0].Engine)
	}
}

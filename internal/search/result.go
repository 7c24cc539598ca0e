package search

// SearchResult is a single ranked web search hit. URL is the dedup key.
type SearchResult struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Content  string  `json:"content"`
	Engine   string  `json:"engine"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// SearchResponse carries at most MaxResults results and is never empty:
// when every instance fails a synthetic fallback result is inserted.
type SearchResponse struct {
	Query               string         `json:"query"`
	NumberOfResults     int            `json:"number_of_results"`
	Results             []SearchResult `json:"results"`
	UnresponsiveEngines []string       `json:"unresponsive_engines"`
}

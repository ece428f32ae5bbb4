package models

// Result is one normalized web search hit. Only the fields the
// summarization pipeline consumes are kept.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// QueryResult groups the hits returned for a single query string.
type QueryResult struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

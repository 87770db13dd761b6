package models

import "time"

// SearchResult is a single article hit.
type SearchResult struct {
	Title          string       `json:"title"`
	Slug           string       `json:"slug"`
	ContentPreview string       `json:"contentPreview"`
	Category       *CategoryRef `json:"category"`
	LastUpdated    time.Time    `json:"lastUpdated"`
	Score          float64      `json:"score"`
	Rank           int          `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

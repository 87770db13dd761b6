package models

import (
	"fmt"
	"strings"
)

// Default and maximum number of search results.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// SearchQuery is a full-text search request over article search text.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	Fuzzy bool   `json:"fuzzy,omitempty"`
}

// Validate trims the query, rejects an empty one, and clamps Limit to [1, maxLimit].
// A maxLimit of zero or less uses MaxSearchLimit.
func (q *SearchQuery) Validate(maxLimit int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if maxLimit <= 0 {
		maxLimit = MaxSearchLimit
	}
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

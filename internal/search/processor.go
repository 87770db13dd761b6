package search

import "github.com/hyperjump/shiori/internal/models"

// ProcessQuery validates and applies defaults to the search query.
func ProcessQuery(query *models.SearchQuery, maxLimit int) error {
	return query.Validate(maxLimit)
}

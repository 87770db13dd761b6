// Package keyword provides full-text search over published articles.
package keyword

import (
	"context"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of matches in the title field.
	// Values > 1 rank title matches above body matches. Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled enables per-term fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance for fuzzy matching (1 or 2). Default 1.
	Fuzziness int
}

// ArticleDocument is the indexed form of an article, keyed by slug.
type ArticleDocument struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, id string, doc *ArticleDocument) error
	IndexBatch(ctx context.Context, docs map[string]*ArticleDocument) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}

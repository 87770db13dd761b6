// Package search answers full-text queries over published articles.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/storage"
)

// Engine runs keyword search and resolves hits to stored articles.
type Engine struct {
	storage      storage.Storage
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
// cfg may be nil, in which case defaults apply.
func NewEngine(storage storage.Storage, keywordIndex keyword.KeywordIndex, cfg *config.SearchConfig) *Engine {
	if cfg == nil {
		cfg = &config.SearchConfig{}
	}
	return &Engine{
		storage:      storage,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
}

// Search returns articles matching query ordered by relevance.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config.MaxLimit); err != nil {
		return nil, err
	}

	hits, err := e.keywordIndex.Search(ctx, query.Query, query.Limit, &keyword.SearchOptions{
		TitleBoost:   e.config.KeywordTitleBoost,
		FuzzyEnabled: query.Fuzzy || e.config.Fuzzy,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	slugs := make([]string, len(hits))
	for i, h := range hits {
		slugs[i] = h.ID
	}
	articles, err := e.storage.GetArticlesBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	scores := NormalizeKeywordScores(hits)

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, len(hits)),
		Query:   query.Query,
	}
	for _, h := range hits {
		a, ok := articles[h.ID]
		if !ok {
			// Indexed but not stored, e.g. a publish that failed midway.
			continue
		}
		response.Results = append(response.Results, &models.SearchResult{
			Title:          a.Title,
			Slug:           a.Slug,
			ContentPreview: a.ContentPreview,
			Category:       a.Category,
			LastUpdated:    a.LastUpdated,
			Score:          scores[h.ID],
			Rank:           len(response.Results) + 1,
		})
	}
	response.Total = len(response.Results)
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

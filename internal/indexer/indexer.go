// Package indexer persists a built hierarchy into storage and the keyword index.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/plaintext"
	"github.com/hyperjump/shiori/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize     = 50
	DefaultPreviewLength = 200
)

// Stats summarizes one IndexHierarchy call.
type Stats struct {
	Categories int
	Articles   int
	// Duplicates counts article slugs that appeared more than once.
	Duplicates int
}

// Indexer writes categories, articles, and site metadata into storage and the keyword index.
type Indexer struct {
	storage       storage.Storage
	keywordIndex  keyword.KeywordIndex
	batchSize     int
	previewLength int
	now           func() time.Time
	logger        *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize sets how many articles are upserted per transaction.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithPreviewLength sets the content preview length in runes.
func WithPreviewLength(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.previewLength = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
// keywordIndex may be nil; articles are then only written to storage.
func NewIndexer(store storage.Storage, keywordIndex keyword.KeywordIndex, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:       store,
		keywordIndex:  keywordIndex,
		batchSize:     DefaultBatchSize,
		previewLength: DefaultPreviewLength,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// IndexHierarchy stores h. Categories and articles are upserted by slug, so
// republishing replaces content in place. Records no longer present in h are kept.
func (idx *Indexer) IndexHierarchy(ctx context.Context, h *models.Hierarchy) (*Stats, error) {
	if h == nil {
		return nil, fmt.Errorf("nil hierarchy")
	}
	if err := idx.storage.SetMeta(ctx, storage.MetaSiteTitle, h.SiteTitle); err != nil {
		return nil, fmt.Errorf("failed to store site title: %w", err)
	}
	siteBlocks := h.SiteBlocks
	if siteBlocks == nil {
		siteBlocks = []models.Block{}
	}
	if err := idx.storage.SetMeta(ctx, storage.MetaSiteBlocks, siteBlocks); err != nil {
		return nil, fmt.Errorf("failed to store site blocks: %w", err)
	}

	stats := &Stats{}
	seen := make(map[string]string)
	now := idx.now()
	for pos, cat := range h.Categories {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		categoryID, err := idx.storage.UpsertCategory(ctx, &models.CategoryRecord{
			Title:    cat.Title,
			Slug:     cat.Slug,
			Tree:     cat.Tree,
			Blocks:   cat.Blocks,
			Position: pos,
		})
		if err != nil {
			return stats, fmt.Errorf("failed to store category %s: %w", cat.Slug, err)
		}
		stats.Categories++

		records := make([]*models.ArticleRecord, 0, len(cat.Articles))
		docs := make(map[string]*keyword.ArticleDocument, len(cat.Articles))
		for i, a := range cat.Articles {
			if prev, dup := seen[a.Slug]; dup {
				stats.Duplicates++
				idx.logger.Warn("duplicate article slug, later article replaces earlier one",
					zap.String("slug", a.Slug),
					zap.String("first_page_id", prev),
					zap.String("page_id", a.ID))
			}
			seen[a.Slug] = a.ID

			text := plaintext.Flatten(a.Blocks)
			records = append(records, &models.ArticleRecord{
				Title:          a.Title,
				Slug:           a.Slug,
				CategoryID:     categoryID,
				Position:       i,
				Blocks:         a.Blocks,
				SearchText:     text,
				ContentPreview: plaintext.Preview(text, idx.previewLength),
				LastUpdated:    now,
			})
			docs[a.Slug] = &keyword.ArticleDocument{Title: a.Title, Content: text, Category: cat.Slug}
		}

		for _, batch := range batches(records, idx.batchSize) {
			if err := idx.storage.UpsertArticles(ctx, batch); err != nil {
				return stats, fmt.Errorf("failed to store articles of %s: %w", cat.Slug, err)
			}
		}
		if idx.keywordIndex != nil {
			if err := idx.keywordIndex.IndexBatch(ctx, docs); err != nil {
				return stats, fmt.Errorf("failed to index articles of %s: %w", cat.Slug, err)
			}
		}
		stats.Articles += len(records)
		idx.logger.Debug("indexer category stored",
			zap.String("slug", cat.Slug),
			zap.Int("articles", len(records)))
	}
	return stats, nil
}

// Reindex rebuilds the keyword index from the search text already in storage.
// It returns the number of articles indexed.
func (idx *Indexer) Reindex(ctx context.Context) (int, error) {
	if idx.keywordIndex == nil {
		return 0, nil
	}
	articles, err := idx.storage.ListArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list articles: %w", err)
	}
	for _, batch := range batches(articles, idx.batchSize) {
		docs := make(map[string]*keyword.ArticleDocument, len(batch))
		for _, a := range batch {
			doc := &keyword.ArticleDocument{Title: a.Title, Content: a.SearchText}
			if a.Category != nil {
				doc.Category = a.Category.Slug
			}
			docs[a.Slug] = doc
		}
		if err := idx.keywordIndex.IndexBatch(ctx, docs); err != nil {
			return 0, fmt.Errorf("failed to index stored articles: %w", err)
		}
	}
	idx.logger.Debug("keyword index rebuilt from storage", zap.Int("articles", len(articles)))
	return len(articles), nil
}

// Package storage persists published categories, articles, and site metadata.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/shiori/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Keys of the singleton metadata records written by each publish.
const (
	MetaSiteTitle  = "_siteTitle"
	MetaSiteBlocks = "_siteBlocks"
)

// Storage defines category, article, and metadata persistence.
// Categories and articles are keyed by slug: upserting an existing slug
// replaces its content and keeps its ID.
type Storage interface {
	// Category operations
	UpsertCategory(ctx context.Context, c *models.CategoryRecord) (string, error)
	ListCategories(ctx context.Context) ([]*models.CategoryRecord, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.CategoryRecord, error)

	// Article operations
	UpsertArticles(ctx context.Context, articles []*models.ArticleRecord) error
	GetArticleBySlug(ctx context.Context, slug string) (*models.ArticleRecord, error)
	GetArticlesBySlugs(ctx context.Context, slugs []string) (map[string]*models.ArticleRecord, error)
	// ListArticles returns every stored article ordered by category position, then article position.
	ListArticles(ctx context.Context) ([]*models.ArticleRecord, error)

	// Metadata operations; values are stored as JSON.
	SetMeta(ctx context.Context, key string, value any) error
	GetMeta(ctx context.Context, key string, dest any) error

	// Stats
	CountCategories(ctx context.Context) (int64, error)
	CountArticles(ctx context.Context) (int64, error)

	Close() error
}

// Package hierarchy walks the page tree under a root page and assembles
// categories, navigation trees, and article lists.
package hierarchy

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/normalize"
	"github.com/hyperjump/shiori/internal/notion"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Titles used when the source provides none.
const (
	DefaultSiteTitle = "Documentation"
	UntitledPage     = "Untitled"
)

// DefaultConcurrency is the number of categories built at once.
const DefaultConcurrency = 2

// Fetcher is the source access the builder needs. *notion.Fetcher implements it.
type Fetcher interface {
	normalize.ChildFetcher
	Page(ctx context.Context, pageID string) (*notion.Page, error)
}

// Builder produces a Hierarchy from a root page.
type Builder struct {
	fetcher     Fetcher
	normalizer  *normalize.Normalizer
	concurrency int
	logger      *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithConcurrency sets how many categories are built in parallel. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n < 1 {
			n = 1
		}
		b.concurrency = n
	}
}

// WithLogger sets a logger for progress and title fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder. The normalizer shares the fetcher.
func NewBuilder(fetcher Fetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.normalizer = normalize.NewNormalizer(fetcher, normalize.WithLogger(b.logger))
	return b
}

// Build fetches and normalizes everything beneath rootID.
// The root's direct child pages become categories in source order; its other
// direct children become the site blocks.
func (b *Builder) Build(ctx context.Context, rootID string) (*models.Hierarchy, error) {
	start := time.Now()
	siteTitle := b.SiteTitle(ctx, rootID)

	rootChildren, err := b.fetcher.Children(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("fetch root children: %w", err)
	}

	var seeds, rest []notion.Block
	for _, c := range rootChildren {
		if c.Type == notion.TypeChildPage {
			seeds = append(seeds, c)
		} else {
			rest = append(rest, c)
		}
	}
	siteBlocks, err := b.normalizer.NormalizeAll(ctx, rest)
	if err != nil {
		return nil, fmt.Errorf("normalize site blocks: %w", err)
	}

	categories := make([]models.Category, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			cat, err := b.buildCategory(gctx, seed)
			if err != nil {
				return err
			}
			categories[i] = cat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := &models.Hierarchy{
		SiteTitle:  siteTitle,
		SiteBlocks: siteBlocks,
		Categories: categories,
	}
	b.logger.Info("hierarchy built",
		zap.String("root_id", rootID),
		zap.String("site_title", siteTitle),
		zap.Int("categories", len(categories)),
		zap.Int("articles", h.ArticleCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return h, nil
}

// SiteTitle returns the root page title, or DefaultSiteTitle when it cannot
// be retrieved or is empty.
func (b *Builder) SiteTitle(ctx context.Context, rootID string) string {
	page, err := b.fetcher.Page(ctx, rootID)
	if err != nil {
		b.logger.Warn("root title unavailable, using default",
			zap.String("root_id", rootID),
			zap.String("default", DefaultSiteTitle),
			zap.Error(err),
		)
		return DefaultSiteTitle
	}
	if title := PageTitle(page); title != "" {
		return title
	}
	return DefaultSiteTitle
}

// PageTitle returns the plain text of a page's title property. The "title"
// and "Name" properties are checked first, then any property of type title.
func PageTitle(page *notion.Page) string {
	if page == nil {
		return ""
	}
	for _, key := range []string{"title", "Name"} {
		if p, ok := page.Properties[key]; ok {
			if t := normalize.PlainText(p.Title); t != "" {
				return t
			}
		}
	}
	for _, p := range page.Properties {
		if p.Type == "title" {
			if t := normalize.PlainText(p.Title); t != "" {
				return t
			}
		}
	}
	return ""
}

func (b *Builder) buildCategory(ctx context.Context, seed notion.Block) (models.Category, error) {
	title := childPageTitle(seed)
	slug := normalize.Slugify(title, seed.ID)
	tree, articles, blocks, err := b.walk(ctx, seed.ID)
	if err != nil {
		return models.Category{}, fmt.Errorf("category %q (%s): %w", title, seed.ID, err)
	}
	b.logger.Debug("category built",
		zap.String("slug", slug),
		zap.Int("articles", len(articles)),
	)
	return models.Category{
		ID:       seed.ID,
		Title:    title,
		Slug:     slug,
		Tree:     tree,
		Articles: articles,
		Blocks:   blocks,
	}, nil
}

// walk fetches pageID's children once and returns the navigation subtree of
// its child pages, their articles in pre-order, and pageID's own content blocks.
func (b *Builder) walk(ctx context.Context, pageID string) ([]models.NavNode, []models.Article, []models.Block, error) {
	children, err := b.fetcher.Children(ctx, pageID)
	if err != nil {
		return nil, nil, nil, err
	}
	blocks, err := b.normalizer.NormalizeAll(ctx, children)
	if err != nil {
		return nil, nil, nil, err
	}

	nodes := []models.NavNode{}
	articles := []models.Article{}
	for _, c := range children {
		if c.Type != notion.TypeChildPage {
			continue
		}
		title := childPageTitle(c)
		slug := normalize.Slugify(title, c.ID)
		subNodes, subArticles, pageBlocks, err := b.walk(ctx, c.ID)
		if err != nil {
			return nil, nil, nil, err
		}
		nodes = append(nodes, models.NavNode{ID: c.ID, Title: title, Slug: slug, Children: subNodes})
		articles = append(articles, models.Article{ID: c.ID, Title: title, Slug: slug, Blocks: pageBlocks})
		articles = append(articles, subArticles...)
	}
	return nodes, articles, blocks, nil
}

func childPageTitle(b notion.Block) string {
	c, err := b.Content()
	if err != nil || c.Title == "" {
		return UntitledPage
	}
	return c.Title
}

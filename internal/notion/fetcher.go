package notion

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Block types the fetcher filters on.
const (
	TypeChildPage = "child_page"
	TypeTableRow  = "table_row"
)

// Fetcher retrieves pages and complete child lists from a Source, applying
// the retry policy to every request.
type Fetcher struct {
	source   Source
	retry    *RetryPolicy
	pageSize int
	logger   *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithPageSize sets the page size requested from the children endpoint.
func WithPageSize(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 && n <= MaxPageSize {
			f.pageSize = n
		}
	}
}

// WithFetcherLogger sets a logger for pagination progress.
func WithFetcherLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a fetcher. A nil policy uses NewRetryPolicy().
func NewFetcher(source Source, policy *RetryPolicy, opts ...FetcherOption) *Fetcher {
	if policy == nil {
		policy = NewRetryPolicy()
	}
	f := &Fetcher{
		source:   source,
		retry:    policy,
		pageSize: MaxPageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Page retrieves a page object.
func (f *Fetcher) Page(ctx context.Context, pageID string) (*Page, error) {
	var page *Page
	err := f.retry.Do(ctx, "retrieve_page", func(ctx context.Context) error {
		p, err := f.source.RetrievePage(ctx, pageID)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve page %s: %w", pageID, err)
	}
	return page, nil
}

// Children returns every child of blockID in source order, following
// continuation cursors until the server reports has_more=false.
func (f *Fetcher) Children(ctx context.Context, blockID string) ([]Block, error) {
	var (
		all    []Block
		cursor string
		pages  int
	)
	for {
		var page *ChildrenPage
		err := f.retry.Do(ctx, "list_children", func(ctx context.Context) error {
			p, err := f.source.ListChildren(ctx, blockID, cursor, f.pageSize)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list children of %s: %w", blockID, err)
		}
		pages++
		all = append(all, page.Results...)
		if !page.HasMore {
			break
		}
		if page.NextCursor == nil || *page.NextCursor == "" {
			return nil, fmt.Errorf("list children of %s: has_more set without next_cursor", blockID)
		}
		cursor = *page.NextCursor
	}
	f.logger.Debug("fetched children",
		zap.String("block_id", blockID),
		zap.Int("count", len(all)),
		zap.Int("pages", pages),
	)
	return all, nil
}

// TableRows returns the table_row children of a table block, skipping anything else.
func (f *Fetcher) TableRows(ctx context.Context, tableID string) ([]Block, error) {
	children, err := f.Children(ctx, tableID)
	if err != nil {
		return nil, err
	}
	rows := children[:0]
	for _, b := range children {
		if b.Type == TypeTableRow {
			rows = append(rows, b)
		}
	}
	return rows, nil
}

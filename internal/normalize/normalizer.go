package normalize

import (
	"context"
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/notion"
	"go.uber.org/zap"
)

// ChildFetcher retrieves complete child lists. *notion.Fetcher implements it.
type ChildFetcher interface {
	Children(ctx context.Context, blockID string) ([]notion.Block, error)
	TableRows(ctx context.Context, tableID string) ([]notion.Block, error)
}

// Normalizer converts source blocks to normalized blocks, fetching the
// children of container blocks recursively.
type Normalizer struct {
	fetcher ChildFetcher
	logger  *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets a logger for dropped block types.
func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// NewNormalizer creates a normalizer backed by fetcher.
func NewNormalizer(fetcher ChildFetcher, opts ...Option) *Normalizer {
	n := &Normalizer{fetcher: fetcher, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

type handler func(n *Normalizer, ctx context.Context, b notion.Block, c notion.BlockContent) (models.Block, bool, error)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"paragraph":          textBlock(models.BlockParagraph, nil),
		"heading_1":          textBlock(models.BlockHeading1, withToggleable),
		"heading_2":          textBlock(models.BlockHeading2, withToggleable),
		"heading_3":          textBlock(models.BlockHeading3, withToggleable),
		"bulleted_list_item": textBlock(models.BlockBulletedListItem, nil),
		"numbered_list_item": textBlock(models.BlockNumberedListItem, nil),
		"to_do":              textBlock(models.BlockToDo, withChecked),
		"toggle":             textBlock(models.BlockToggle, nil),
		"quote":              textBlock(models.BlockQuote, nil),
		"callout":            textBlock(models.BlockCallout, withIcon),
		"code":               codeBlock,
		"divider":            bareBlock(models.BlockDivider),
		"image":              mediaBlock(models.BlockImage),
		"video":              mediaBlock(models.BlockVideo),
		"file":               mediaBlock(models.BlockFile),
		"pdf":                mediaBlock(models.BlockPDF),
		"audio":              mediaBlock(models.BlockAudio),
		"bookmark":           urlBlock(models.BlockBookmark),
		"embed":              urlBlock(models.BlockEmbed),
		"link_preview":       urlBlock(models.BlockLinkPreview),
		"equation":           equationBlock,
		"table":              tableBlock,
		"synced_block":       syncedBlock,
		"column_list":        columnListBlock,
		"link_to_page":       linkToPageBlock,
		"table_of_contents":  bareBlock(models.BlockTableOfContents),
		"breadcrumb":         bareBlock(models.BlockBreadcrumb),
	}
}

// Supported reports whether blocks of the given source type are normalized.
func Supported(sourceType string) bool {
	_, ok := handlers[sourceType]
	return ok
}

// Normalize converts one block. ok is false when the block has no normalized
// form (unsupported type or missing media URL) and should be dropped.
func (n *Normalizer) Normalize(ctx context.Context, b notion.Block) (models.Block, bool, error) {
	h, found := handlers[b.Type]
	if !found {
		n.logger.Debug("dropping unsupported block", zap.String("type", b.Type), zap.String("id", b.ID))
		return models.Block{}, false, nil
	}
	c, err := b.Content()
	if err != nil {
		return models.Block{}, false, err
	}
	return h(n, ctx, b, c)
}

// NormalizeAll converts blocks in order, omitting those without a normalized form.
func (n *Normalizer) NormalizeAll(ctx context.Context, blocks []notion.Block) ([]models.Block, error) {
	out := make([]models.Block, 0, len(blocks))
	for _, b := range blocks {
		nb, ok, err := n.Normalize(ctx, b)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, nb)
		}
	}
	return out, nil
}

// Children fetches and normalizes the children of blockID.
func (n *Normalizer) Children(ctx context.Context, blockID string) ([]models.Block, error) {
	children, err := n.fetcher.Children(ctx, blockID)
	if err != nil {
		return nil, err
	}
	return n.NormalizeAll(ctx, children)
}

type decorator func(out *models.Block, c notion.BlockContent)

func withToggleable(out *models.Block, c notion.BlockContent) {
	v := c.IsToggleable
	out.IsToggleable = &v
}

func withChecked(out *models.Block, c notion.BlockContent) {
	v := c.Checked
	out.Checked = &v
}

func withIcon(out *models.Block, c notion.BlockContent) {
	if c.Icon != nil && c.Icon.Type == "emoji" && c.Icon.Emoji != "" {
		emoji := c.Icon.Emoji
		out.Icon = &emoji
	}
}

func textBlock(kind string, decorate decorator) handler {
	return func(n *Normalizer, ctx context.Context, b notion.Block, c notion.BlockContent) (models.Block, bool, error) {
		out := models.Block{
			Type:     kind,
			RichText: NormalizeRichText(c.RichText),
			Color:    c.Color,
		}
		if decorate != nil {
			decorate(&out, c)
		}
		if b.HasChildren {
			children, err := n.Children(ctx, b.ID)
			if err != nil {
				return models.Block{}, false, fmt.Errorf("children of %s %s: %w", b.Type, b.ID, err)
			}
			out.Children = children
		}
		return out, true, nil
	}
}

func codeBlock(_ *Normalizer, _ context.Context, _ notion.Block, c notion.BlockContent) (models.Block, bool, error) {
	return models.Block{
		Type:     models.BlockCode,
		Language: c.Language,
		Color:    c.Color,
		RichText: NormalizeRichText(c.RichText),
		Caption:  NormalizeRichText(c.Caption),
	}, true, nil
}

func bareBlock(kind string) handler {
	return func(_ *Normalizer, _ context.Context, _ notion.Block, _ notion.BlockContent) (models.Block, bool, error) {
		return models.Block{Type: kind}, true, nil
	}
}

func mediaBlock(kind string) handler {
	return func(_ *Normalizer, _ context.Context, _ notion.Block, c notion.BlockContent) (models.Block, bool, error) {
		var src string
		external := false
		if c.External != nil && c.External.URL != "" {
			src = c.External.URL
			external = true
		} else if c.File != nil && c.File.URL != "" {
			src = c.File.URL
		}
		if src == "" {
			return models.Block{}, false, nil
		}
		if kind == models.BlockVideo && external {
			src = EmbeddableVideoURL(src)
		}
		return models.Block{
			Type:    kind,
			Src:     src,
			Caption: NormalizeRichText(c.Caption),
		}, true, nil
	}
}

func urlBlock(kind string) handler {
	return func(_ *Normalizer, _ context.Context, _ notion.Block, c notion.BlockContent) (models.Block, bool, error) {
		if c.URL == "" {
			return models.Block{}, false, nil
		}
		return models.Block{
			Type:    kind,
			URL:     c.URL,
			Caption: NormalizeRichText(c.Caption),
		}, true, nil
	}
}

func equationBlock(_ *Normalizer, _ context.Context, _ notion.Block, c notion.BlockContent) (models.Block, bool, error) {
	return models.Block{Type: models.BlockEquation, Expression: c.Expression}, true, nil
}

func tableBlock(n *Normalizer, ctx context.Context, b notion.Block, c notion.BlockContent) (models.Block, bool, error) {
	rows, err := n.fetcher.TableRows(ctx, b.ID)
	if err != nil {
		return models.Block{}, false, fmt.Errorf("rows of table %s: %w", b.ID, err)
	}
	out := models.Block{
		Type:            models.BlockTable,
		TableWidth:      &c.TableWidth,
		HasColumnHeader: &c.HasColumnHeader,
		HasRowHeader:    &c.HasRowHeader,
		Rows:            make([][][]models.RichSpan, 0, len(rows)),
	}
	for _, row := range rows {
		rc, err := row.Content()
		if err != nil {
			return models.Block{}, false, err
		}
		cells := make([][]models.RichSpan, 0, len(rc.Cells))
		for _, cell := range rc.Cells {
			cells = append(cells, NormalizeRichText(cell))
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, true, nil
}

// syncedBlock resolves a synced copy to its original and inlines the
// original's children as a group.
func syncedBlock(n *Normalizer, ctx context.Context, b notion.Block, c notion.BlockContent) (models.Block, bool, error) {
	target := b.ID
	if c.SyncedFrom != nil && c.SyncedFrom.BlockID != "" {
		target = c.SyncedFrom.BlockID
	}
	children, err := n.Children(ctx, target)
	if err != nil {
		return models.Block{}, false, fmt.Errorf("synced block %s: %w", target, err)
	}
	return models.Block{Type: models.BlockGroup, Children: children}, true, nil
}

func columnListBlock(n *Normalizer, ctx context.Context, b notion.Block, _ notion.BlockContent) (models.Block, bool, error) {
	cols, err := n.fetcher.Children(ctx, b.ID)
	if err != nil {
		return models.Block{}, false, fmt.Errorf("columns of %s: %w", b.ID, err)
	}
	out := models.Block{Type: models.BlockColumns, Columns: make([]models.Column, 0, len(cols))}
	for _, col := range cols {
		if col.Type != "column" {
			continue
		}
		children, err := n.Children(ctx, col.ID)
		if err != nil {
			return models.Block{}, false, fmt.Errorf("column %s: %w", col.ID, err)
		}
		out.Columns = append(out.Columns, models.Column{Children: children})
	}
	return out, true, nil
}

func linkToPageBlock(_ *Normalizer, _ context.Context, _ notion.Block, c notion.BlockContent) (models.Block, bool, error) {
	out := models.Block{Type: models.BlockLinkToPage}
	if c.PageID != "" {
		id := c.PageID
		out.PageID = &id
	}
	if c.DatabaseID != "" {
		id := c.DatabaseID
		out.DatabaseID = &id
	}
	return out, true, nil
}

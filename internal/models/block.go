// Package models defines the normalized content tree, the stored records, and search types.
package models

import "encoding/json"

// Block types emitted by the normalizer.
const (
	BlockParagraph        = "paragraph"
	BlockHeading1         = "heading_1"
	BlockHeading2         = "heading_2"
	BlockHeading3         = "heading_3"
	BlockBulletedListItem = "bulleted_list_item"
	BlockNumberedListItem = "numbered_list_item"
	BlockToDo             = "to_do"
	BlockToggle           = "toggle"
	BlockQuote            = "quote"
	BlockCallout          = "callout"
	BlockCode             = "code"
	BlockDivider          = "divider"
	BlockImage            = "image"
	BlockVideo            = "video"
	BlockFile             = "file"
	BlockPDF              = "pdf"
	BlockAudio            = "audio"
	BlockBookmark         = "bookmark"
	BlockEmbed            = "embed"
	BlockLinkPreview      = "link_preview"
	BlockEquation         = "equation"
	BlockTable            = "table"
	BlockGroup            = "group"
	BlockColumns          = "columns"
	BlockLinkToPage       = "link_to_page"
	BlockTableOfContents  = "table_of_contents"
	BlockBreadcrumb       = "breadcrumb"
)

// RichSpan is one run of inline text with its formatting.
type RichSpan struct {
	Text        string          `json:"text"`
	Href        *string         `json:"href"`
	Annotations map[string]any  `json:"annotations"`
	Type        string          `json:"type,omitempty"`
	Equation    *string         `json:"equation"`
	Mention     json.RawMessage `json:"mention"`
}

// Block is a normalized content node. Type selects which of the optional fields are meaningful.
type Block struct {
	Type     string     `json:"type"`
	RichText []RichSpan `json:"richText,omitempty"`
	Color    string     `json:"color,omitempty"`
	Children []Block    `json:"children,omitempty"`

	// Text is a raw text field some producers set instead of RichText.
	Text string `json:"text,omitempty"`

	IsToggleable *bool   `json:"is_toggleable,omitempty"`
	Checked      *bool   `json:"checked,omitempty"`
	Language     string  `json:"language,omitempty"`
	Icon         *string `json:"icon,omitempty"`

	Src     string     `json:"src,omitempty"`
	Caption []RichSpan `json:"caption,omitempty"`
	URL     string     `json:"url,omitempty"`

	Expression string `json:"expression,omitempty"`

	TableWidth      *int           `json:"table_width,omitempty"`
	HasColumnHeader *bool          `json:"has_column_header,omitempty"`
	HasRowHeader    *bool          `json:"has_row_header,omitempty"`
	Rows            [][][]RichSpan `json:"rows,omitempty"`

	Columns []Column `json:"columns,omitempty"`

	PageID     *string `json:"page_id,omitempty"`
	DatabaseID *string `json:"database_id,omitempty"`
}

// Column is one column of a columns block.
type Column struct {
	Children []Block `json:"children"`
}

// MarshalJSON writes icon for callouts and page_id/database_id for link_to_page
// blocks even when they are nil, so readers see an explicit null.
func (b Block) MarshalJSON() ([]byte, error) {
	type plain Block
	switch b.Type {
	case BlockCallout:
		return json.Marshal(struct {
			plain
			Icon *string `json:"icon"`
		}{plain(b), b.Icon})
	case BlockLinkToPage:
		return json.Marshal(struct {
			plain
			PageID     *string `json:"page_id"`
			DatabaseID *string `json:"database_id"`
		}{plain(b), b.PageID, b.DatabaseID})
	}
	return json.Marshal(plain(b))
}

package notion

import (
	"encoding/json"
	"fmt"
)

// Block is a child entry as returned by the block children endpoint.
// Payload holds the raw object keyed by Type and is decoded on demand.
type Block struct {
	Object      string          `json:"object"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	HasChildren bool            `json:"has_children"`
	Archived    bool            `json:"archived"`
	Payload     json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the common header and captures the payload stored under the block's type key.
func (b *Block) UnmarshalJSON(data []byte) error {
	type header Block
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*b = Block(h)
	if b.Type == "" {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Payload = raw[b.Type]
	return nil
}

// MarshalJSON writes the header and the payload back under the type key.
func (b Block) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"object":       b.Object,
		"id":           b.ID,
		"type":         b.Type,
		"has_children": b.HasChildren,
		"archived":     b.Archived,
	}
	if b.Type != "" && len(b.Payload) > 0 {
		out[b.Type] = b.Payload
	}
	return json.Marshal(out)
}

// Content decodes the type-specific payload. A block without payload yields a zero BlockContent.
func (b *Block) Content() (BlockContent, error) {
	var c BlockContent
	if len(b.Payload) == 0 || string(b.Payload) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(b.Payload, &c); err != nil {
		return c, fmt.Errorf("decode %s payload of block %s: %w", b.Type, b.ID, err)
	}
	return c, nil
}

// BlockContent is the union of the payload fields used by the supported block types.
type BlockContent struct {
	RichText     []RichText `json:"rich_text"`
	Color        string     `json:"color"`
	IsToggleable bool       `json:"is_toggleable"`
	Checked      bool       `json:"checked"`
	Language     string     `json:"language"`
	Icon         *Icon      `json:"icon"`

	// Media and file blocks.
	Caption  []RichText `json:"caption"`
	FileType string     `json:"type"`
	External *FileRef   `json:"external"`
	File     *FileRef   `json:"file"`

	URL        string `json:"url"`
	Expression string `json:"expression"`

	// Tables and table rows.
	TableWidth      int          `json:"table_width"`
	HasColumnHeader bool         `json:"has_column_header"`
	HasRowHeader    bool         `json:"has_row_header"`
	Cells           [][]RichText `json:"cells"`

	SyncedFrom *SyncedFrom `json:"synced_from"`

	// child_page
	Title string `json:"title"`

	// link_to_page
	PageID     string `json:"page_id"`
	DatabaseID string `json:"database_id"`
}

// RichText is one inline text run.
type RichText struct {
	Type        string          `json:"type"`
	PlainText   string          `json:"plain_text"`
	Href        *string         `json:"href"`
	Annotations map[string]any  `json:"annotations"`
	Text        *TextContent    `json:"text,omitempty"`
	Equation    *Equation       `json:"equation,omitempty"`
	Mention     json.RawMessage `json:"mention,omitempty"`
}

// TextContent is the payload of a text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link"`
}

// Link is a hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// Equation is an inline or block equation.
type Equation struct {
	Expression string `json:"expression"`
}

// Icon is a page or callout icon. Only emoji icons carry Emoji.
type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

// FileRef points at a hosted or external file.
type FileRef struct {
	URL string `json:"url"`
}

// SyncedFrom references the original of a synced block copy. Nil on the original itself.
type SyncedFrom struct {
	Type    string `json:"type"`
	BlockID string `json:"block_id"`
}

// Page is a retrieved page object.
type Page struct {
	Object     string              `json:"object"`
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// Property is a page property. Only title properties are decoded.
type Property struct {
	ID    string     `json:"id"`
	Type  string     `json:"type"`
	Title []RichText `json:"title"`
}

// ChildrenPage is one page of a block children listing.
type ChildrenPage struct {
	Object     string  `json:"object"`
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

package models

import "time"

// CategoryRecord is a stored category.
type CategoryRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Tree      []NavNode `json:"tree"`
	Blocks    []Block   `json:"blocks"`
	Position  int       `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleRecord is a stored article. SearchText and ContentPreview are derived from Blocks.
type ArticleRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	CategoryID     string    `json:"category_id"`
	Position       int       `json:"-"`
	Blocks         []Block   `json:"blocks"`
	SearchText     string    `json:"-"`
	ContentPreview string    `json:"content_preview"`
	LastUpdated    time.Time `json:"last_updated"`

	// Category is filled by reads that join the owning category.
	Category *CategoryRef `json:"category,omitempty"`
}

// CategoryRef identifies the category an article belongs to.
type CategoryRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

package models

// NavNode is one page in a category's navigation tree.
type NavNode struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	Children []NavNode `json:"children"`
}

// Article is a page under a category together with its normalized content.
type Article struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Slug   string  `json:"slug"`
	Blocks []Block `json:"blocks"`
}

// Category is a direct child page of the root.
// Articles holds every descendant page in depth-first pre-order.
type Category struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	Tree     []NavNode `json:"tree"`
	Articles []Article `json:"articles"`
	Blocks   []Block   `json:"blocks"`
}

// Hierarchy is the result of one publish run.
type Hierarchy struct {
	SiteTitle  string     `json:"siteTitle"`
	SiteBlocks []Block    `json:"siteBlocks"`
	Categories []Category `json:"categories"`
}

// ArticleCount returns the number of articles across all categories.
func (h *Hierarchy) ArticleCount() int {
	n := 0
	for _, c := range h.Categories {
		n += len(c.Articles)
	}
	return n
}

package hierarchy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hyperjump/shiori/internal/notion"
	"go.uber.org/zap"
)

// fakeFetcher serves a static page tree. Safe for concurrent use.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]*notion.Page
	children map[string][]notion.Block
	pageErr  error
	failOn   string
	fetched  []string
}

func (f *fakeFetcher) Page(_ context.Context, id string) (*notion.Page, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if p, ok := f.pages[id]; ok {
		return p, nil
	}
	return &notion.Page{ID: id}, nil
}

func (f *fakeFetcher) Children(_ context.Context, id string) ([]notion.Block, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()
	if id == f.failOn {
		return nil, errors.New("permanent failure")
	}
	return f.children[id], nil
}

func (f *fakeFetcher) TableRows(ctx context.Context, id string) ([]notion.Block, error) {
	return f.Children(ctx, id)
}

func mustBlock(t *testing.T, raw string) notion.Block {
	t.Helper()
	var b notion.Block
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatal(err)
	}
	return b
}

func childPage(t *testing.T, id, title string) notion.Block {
	return mustBlock(t, fmt.Sprintf(`{"id":%q,"type":"child_page","has_children":true,"child_page":{"title":%q}}`, id, title))
}

func paragraph(t *testing.T, id, text string) notion.Block {
	return mustBlock(t, fmt.Sprintf(`{"id":%q,"type":"paragraph","paragraph":{"rich_text":[{"plain_text":%q}]}}`, id, text))
}

func titledPage(id, title string) *notion.Page {
	return &notion.Page{ID: id, Properties: map[string]notion.Property{
		"title": {Type: "title", Title: []notion.RichText{{PlainText: title}}},
	}}
}

func sampleTree(t *testing.T) *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]*notion.Page{"root": titledPage("root", "Acme Handbook")},
		children: map[string][]notion.Block{
			"root": {
				paragraph(t, "intro", "Welcome"),
				childPage(t, "cat1", "Getting Started"),
				mustBlock(t, `{"id":"u","type":"unsupported","unsupported":{}}`),
				childPage(t, "cat2", "FAQ"),
			},
			"cat1": {
				paragraph(t, "c1p", "Category intro"),
				childPage(t, "A", "Install"),
				childPage(t, "C", "Configure"),
			},
			"A": {
				paragraph(t, "ap", "Install text"),
				childPage(t, "B", "On Linux"),
			},
			"B": {paragraph(t, "bp", "apt install")},
			"C": {paragraph(t, "cp", "Edit the file")},
			"cat2": {childPage(t, "Q", "")},
		},
	}
}

func TestBuild(t *testing.T) {
	f := sampleTree(t)
	b := NewBuilder(f, WithLogger(zap.NewNop()))

	h, err := b.Build(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if h.SiteTitle != "Acme Handbook" {
		t.Errorf("SiteTitle = %q", h.SiteTitle)
	}
	if len(h.SiteBlocks) != 1 || h.SiteBlocks[0].RichText[0].Text != "Welcome" {
		t.Errorf("SiteBlocks = %+v", h.SiteBlocks)
	}
	if len(h.Categories) != 2 {
		t.Fatalf("got %d categories", len(h.Categories))
	}

	cat := h.Categories[0]
	if cat.Slug != "getting-started" || cat.Title != "Getting Started" {
		t.Errorf("category = %q / %q", cat.Title, cat.Slug)
	}
	if len(cat.Blocks) != 1 || cat.Blocks[0].RichText[0].Text != "Category intro" {
		t.Errorf("category blocks = %+v", cat.Blocks)
	}

	var ids []string
	for _, a := range cat.Articles {
		ids = append(ids, a.ID)
	}
	if fmt.Sprint(ids) != "[A B C]" {
		t.Errorf("articles = %v, want [A B C]", ids)
	}
	if cat.Articles[1].Slug != "on-linux" || cat.Articles[1].Blocks[0].RichText[0].Text != "apt install" {
		t.Errorf("article B = %+v", cat.Articles[1])
	}
	if len(cat.Articles[0].Blocks) != 1 {
		t.Errorf("article A should only carry its own content blocks, got %d", len(cat.Articles[0].Blocks))
	}

	if len(cat.Tree) != 2 || cat.Tree[0].ID != "A" || cat.Tree[1].ID != "C" {
		t.Fatalf("tree = %+v", cat.Tree)
	}
	if len(cat.Tree[0].Children) != 1 || cat.Tree[0].Children[0].ID != "B" {
		t.Errorf("tree[0].Children = %+v", cat.Tree[0].Children)
	}
	if len(cat.Tree[1].Children) != 0 {
		t.Errorf("tree[1] should be a leaf")
	}

	faq := h.Categories[1]
	if faq.Slug != "faq" || len(faq.Articles) != 1 {
		t.Fatalf("faq = %+v", faq)
	}
	if faq.Articles[0].Title != UntitledPage || faq.Articles[0].Slug != "untitled" {
		t.Errorf("untitled article = %q / %q", faq.Articles[0].Title, faq.Articles[0].Slug)
	}
}

func TestBuild_FetchesEachPageOnce(t *testing.T) {
	f := sampleTree(t)
	if _, err := NewBuilder(f).Build(context.Background(), "root"); err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, id := range f.fetched {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("children of %s fetched %d times", id, n)
		}
	}
}

func TestBuild_PreservesCategoryOrderUnderConcurrency(t *testing.T) {
	f := &fakeFetcher{children: map[string][]notion.Block{}}
	var want []string
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("cat%02d", i)
		f.children["root"] = append(f.children["root"], childPage(t, id, "Category "+id))
		f.children[id] = []notion.Block{childPage(t, id+"-a", "Article")}
		want = append(want, id)
	}
	h, err := NewBuilder(f, WithConcurrency(4)).Build(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range h.Categories {
		if c.ID != want[i] {
			t.Fatalf("category %d = %s, want %s", i, c.ID, want[i])
		}
	}
}

func TestBuild_DefaultTitleOnFailure(t *testing.T) {
	f := sampleTree(t)
	f.pageErr = &notion.APIError{Status: 404, Code: "object_not_found"}
	h, err := NewBuilder(f).Build(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if h.SiteTitle != DefaultSiteTitle {
		t.Errorf("SiteTitle = %q, want %q", h.SiteTitle, DefaultSiteTitle)
	}
}

func TestBuild_FailsOnPermanentFetchError(t *testing.T) {
	f := sampleTree(t)
	f.failOn = "B"
	_, err := NewBuilder(f).Build(context.Background(), "root")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBuild_EmptyRoot(t *testing.T) {
	f := &fakeFetcher{}
	h, err := NewBuilder(f).Build(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Categories) != 0 || len(h.SiteBlocks) != 0 {
		t.Errorf("expected empty hierarchy, got %+v", h)
	}
	if h.SiteTitle != DefaultSiteTitle {
		t.Errorf("SiteTitle = %q", h.SiteTitle)
	}
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		name string
		page *notion.Page
		want string
	}{
		{"nil", nil, ""},
		{"title property", titledPage("p", "Docs"), "Docs"},
		{"Name property", &notion.Page{Properties: map[string]notion.Property{
			"Name": {Type: "title", Title: []notion.RichText{{PlainText: "Wiki"}, {PlainText: " Home"}}},
		}}, "Wiki Home"},
		{"other title property", &notion.Page{Properties: map[string]notion.Property{
			"Page": {Type: "title", Title: []notion.RichText{{PlainText: "Custom"}}},
		}}, "Custom"},
		{"empty", &notion.Page{Properties: map[string]notion.Property{
			"title": {Type: "title"},
		}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageTitle(tt.page); got != tt.want {
				t.Errorf("PageTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlugFallsBackToID(t *testing.T) {
	f := &fakeFetcher{children: map[string][]notion.Block{
		"root": {childPage(t, "emoji-only-id", "🚀🚀")},
	}}
	h, err := NewBuilder(f).Build(context.Background(), "root")
	if err != nil {
		t.Fatal(err)
	}
	if got := h.Categories[0].Slug; got != "emoji-only-id" {
		t.Errorf("slug = %q", got)
	}
}

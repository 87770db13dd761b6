package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/shiori/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func para(text string) models.Block {
	return models.Block{Type: models.BlockParagraph, RichText: []models.RichSpan{{Text: text, Annotations: map[string]any{}}}}
}

func TestSQLiteStorage_UpsertCategoryKeepsID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cat := &models.CategoryRecord{
		Title: "Getting Started",
		Slug:  "getting-started",
		Tree:  []models.NavNode{{ID: "p1", Title: "Install", Slug: "install", Children: []models.NavNode{}}},
	}
	id, err := store.UpsertCategory(ctx, cat)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	again := &models.CategoryRecord{Title: "Getting Started (v2)", Slug: "getting-started", Blocks: []models.Block{para("intro")}}
	id2, err := store.UpsertCategory(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Errorf("upsert by slug changed id: %s -> %s", id, id2)
	}

	got, err := store.GetCategoryBySlug(ctx, "getting-started")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Getting Started (v2)" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Tree == nil || len(got.Tree) != 0 {
		t.Errorf("tree should be replaced with empty list, got %+v", got.Tree)
	}
	if len(got.Blocks) != 1 || got.Blocks[0].RichText[0].Text != "intro" {
		t.Errorf("blocks = %+v", got.Blocks)
	}

	n, err := store.CountCategories(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountCategories = %d, %v", n, err)
	}
}

func TestSQLiteStorage_ListCategoriesOrdered(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	for i, slug := range []string{"zeta", "alpha", "mid"} {
		if _, err := store.UpsertCategory(ctx, &models.CategoryRecord{Title: slug, Slug: slug, Position: i}); err != nil {
			t.Fatal(err)
		}
	}
	cats, err := store.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 3 || cats[0].Slug != "zeta" || cats[1].Slug != "alpha" || cats[2].Slug != "mid" {
		t.Errorf("unexpected order: %v %v %v", cats[0].Slug, cats[1].Slug, cats[2].Slug)
	}
}

func TestSQLiteStorage_UpsertArticles(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	catID, err := store.UpsertCategory(ctx, &models.CategoryRecord{Title: "Guides", Slug: "guides"})
	if err != nil {
		t.Fatal(err)
	}
	articles := []*models.ArticleRecord{
		{Title: "Install", Slug: "install", CategoryID: catID, Blocks: []models.Block{para("run it")}, SearchText: "run it", ContentPreview: "run it"},
		{Title: "Configure", Slug: "configure", CategoryID: catID, Position: 1, SearchText: "edit config"},
	}
	if err := store.UpsertArticles(ctx, articles); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetArticleBySlug(ctx, "install")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Install" || got.SearchText != "run it" || len(got.Blocks) != 1 {
		t.Errorf("article = %+v", got)
	}
	if got.Category == nil || got.Category.Slug != "guides" || got.Category.Title != "Guides" {
		t.Errorf("category = %+v", got.Category)
	}
	if got.LastUpdated.IsZero() {
		t.Error("last_updated should be set")
	}
	firstID := got.ID

	articles[0].ID = ""
	articles[0].Title = "Installation"
	if err := store.UpsertArticles(ctx, articles[:1]); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetArticleBySlug(ctx, "install")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Installation" || got.ID != firstID {
		t.Errorf("after re-upsert: title=%q id=%s (was %s)", got.Title, got.ID, firstID)
	}

	n, err := store.CountArticles(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountArticles = %d, %v", n, err)
	}
}

func TestSQLiteStorage_UpsertArticlesRequiresCategory(t *testing.T) {
	store := newTestStorage(t)
	err := store.UpsertArticles(context.Background(), []*models.ArticleRecord{
		{Title: "Orphan", Slug: "orphan", CategoryID: "missing"},
	})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
	n, _ := store.CountArticles(context.Background())
	if n != 0 {
		t.Errorf("failed batch should roll back, found %d articles", n)
	}
}

func TestSQLiteStorage_GetArticleNotFound(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.GetArticleBySlug(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_GetArticlesBySlugs(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	catID, _ := store.UpsertCategory(ctx, &models.CategoryRecord{Title: "C", Slug: "c"})
	_ = store.UpsertArticles(ctx, []*models.ArticleRecord{
		{Title: "A", Slug: "a", CategoryID: catID},
		{Title: "B", Slug: "b", CategoryID: catID},
	})
	got, err := store.GetArticlesBySlugs(ctx, []string{"a", "b", "zzz"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["a"].Title != "A" || got["b"].Category.Slug != "c" {
		t.Errorf("got %+v", got)
	}
	empty, err := store.GetArticlesBySlugs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty lookup = %v, %v", empty, err)
	}
}

func TestSQLiteStorage_ListArticles(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	second, _ := store.UpsertCategory(ctx, &models.CategoryRecord{Title: "Later", Slug: "later", Position: 1})
	first, _ := store.UpsertCategory(ctx, &models.CategoryRecord{Title: "First", Slug: "first", Position: 0})
	if err := store.UpsertArticles(ctx, []*models.ArticleRecord{
		{Title: "L", Slug: "l", CategoryID: second, SearchText: "later text"},
		{Title: "F2", Slug: "f2", CategoryID: first, Position: 1},
		{Title: "F1", Slug: "f1", CategoryID: first, Position: 0, SearchText: "first text"},
	}); err != nil {
		t.Fatal(err)
	}
	got, err := store.ListArticles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Slug != "f1" || got[1].Slug != "f2" || got[2].Slug != "l" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].SearchText != "first text" || got[2].Category == nil || got[2].Category.Slug != "later" {
		t.Errorf("article fields not loaded: %+v", got[0])
	}
}

func TestSQLiteStorage_Meta(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	var title string
	if err := store.GetMeta(ctx, MetaSiteTitle, &title); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing meta err = %v", err)
	}
	if err := store.SetMeta(ctx, MetaSiteTitle, "Handbook"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetMeta(ctx, MetaSiteTitle, "Handbook v2"); err != nil {
		t.Fatal(err)
	}
	if err := store.GetMeta(ctx, MetaSiteTitle, &title); err != nil {
		t.Fatal(err)
	}
	if title != "Handbook v2" {
		t.Errorf("title = %q", title)
	}

	if err := store.SetMeta(ctx, MetaSiteBlocks, []models.Block{para("hello")}); err != nil {
		t.Fatal(err)
	}
	var blocks []models.Block
	if err := store.GetMeta(ctx, MetaSiteBlocks, &blocks); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].RichText[0].Text != "hello" {
		t.Errorf("blocks = %+v", blocks)
	}
}

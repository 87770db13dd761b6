package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shiori/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		tree TEXT NOT NULL DEFAULT '[]',
		blocks TEXT NOT NULL DEFAULT '[]',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		category_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		blocks TEXT NOT NULL DEFAULT '[]',
		search_text TEXT NOT NULL DEFAULT '',
		content_preview TEXT NOT NULL DEFAULT '',
		last_updated TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_articles_category_id ON articles(category_id, position);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertCategory inserts or replaces the category with c.Slug and returns its stored ID.
// A new category gets c.ID, or a fresh UUID when c.ID is empty.
func (s *SQLiteStorage) UpsertCategory(ctx context.Context, c *models.CategoryRecord) (string, error) {
	treeJSON, err := json.Marshal(nonNil(c.Tree))
	if err != nil {
		return "", fmt.Errorf("failed to marshal tree: %w", err)
	}
	blocksJSON, err := json.Marshal(nonNil(c.Blocks))
	if err != nil {
		return "", fmt.Errorf("failed to marshal blocks: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UpdatedAt = time.Now()

	var id string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO categories (id, slug, title, tree, blocks, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
		   title = excluded.title,
		   tree = excluded.tree,
		   blocks = excluded.blocks,
		   position = excluded.position,
		   updated_at = excluded.updated_at
		 RETURNING id`,
		c.ID, c.Slug, c.Title, string(treeJSON), string(blocksJSON), c.Position, c.UpdatedAt, c.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	c.ID = id
	return id, nil
}

// ListCategories returns all categories in publish order.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]*models.CategoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, title, tree, blocks, position, updated_at
		 FROM categories ORDER BY position, title`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CategoryRecord
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategoryBySlug returns one category.
func (s *SQLiteStorage) GetCategoryBySlug(ctx context.Context, slug string) (*models.CategoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, title, tree, blocks, position, updated_at
		 FROM categories WHERE slug = ?`, slug,
	)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", slug, ErrNotFound)
	}
	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(r scanner) (*models.CategoryRecord, error) {
	var c models.CategoryRecord
	var treeJSON, blocksJSON string
	if err := r.Scan(&c.ID, &c.Slug, &c.Title, &treeJSON, &blocksJSON, &c.Position, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(treeJSON), &c.Tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tree: %w", err)
	}
	if err := json.Unmarshal([]byte(blocksJSON), &c.Blocks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}
	return &c, nil
}

// UpsertArticles inserts or replaces articles by slug in a single transaction.
func (s *SQLiteStorage) UpsertArticles(ctx context.Context, articles []*models.ArticleRecord) error {
	if len(articles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (id, slug, title, category_id, position, blocks, search_text, content_preview, last_updated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
		   title = excluded.title,
		   category_id = excluded.category_id,
		   position = excluded.position,
		   blocks = excluded.blocks,
		   search_text = excluded.search_text,
		   content_preview = excluded.content_preview,
		   last_updated = excluded.last_updated`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, a := range articles {
		blocksJSON, err := json.Marshal(nonNil(a.Blocks))
		if err != nil {
			return fmt.Errorf("failed to marshal blocks of %s: %w", a.Slug, err)
		}
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.LastUpdated.IsZero() {
			a.LastUpdated = now
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Slug, a.Title, a.CategoryID, a.Position, string(blocksJSON),
			a.SearchText, a.ContentPreview, a.LastUpdated, now,
		); err != nil {
			return fmt.Errorf("failed to upsert article %s: %w", a.Slug, err)
		}
	}
	return tx.Commit()
}

const articleColumns = `a.id, a.slug, a.title, a.category_id, a.position, a.blocks, a.search_text,
	a.content_preview, a.last_updated, c.id, c.title, c.slug`

func scanArticle(r scanner) (*models.ArticleRecord, error) {
	var a models.ArticleRecord
	var blocksJSON string
	var catID, catTitle, catSlug sql.NullString
	if err := r.Scan(&a.ID, &a.Slug, &a.Title, &a.CategoryID, &a.Position, &blocksJSON, &a.SearchText,
		&a.ContentPreview, &a.LastUpdated, &catID, &catTitle, &catSlug); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blocksJSON), &a.Blocks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}
	if catID.Valid {
		a.Category = &models.CategoryRef{ID: catID.String, Title: catTitle.String, Slug: catSlug.String}
	}
	return &a, nil
}

// GetArticleBySlug returns an article with its category.
func (s *SQLiteStorage) GetArticleBySlug(ctx context.Context, slug string) (*models.ArticleRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+`
		 FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		 WHERE a.slug = ?`, slug,
	)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("article %s: %w", slug, ErrNotFound)
	}
	return a, err
}

// GetArticlesBySlugs returns the articles that exist among slugs, keyed by slug.
func (s *SQLiteStorage) GetArticlesBySlugs(ctx context.Context, slugs []string) (map[string]*models.ArticleRecord, error) {
	out := make(map[string]*models.ArticleRecord, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slugs)), ",")
	args := make([]any, len(slugs))
	for i, slug := range slugs {
		args[i] = slug
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+`
		 FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		 WHERE a.slug IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out[a.Slug] = a
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListArticles(ctx context.Context) ([]*models.ArticleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+`
		 FROM articles a LEFT JOIN categories c ON c.id = a.category_id
		 ORDER BY c.position, a.position, a.slug`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.ArticleRecord
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetMeta stores value as JSON under key, replacing any previous value.
func (s *SQLiteStorage) SetMeta(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal meta %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now(),
	)
	return err
}

// GetMeta decodes the JSON value stored under key into dest.
func (s *SQLiteStorage) GetMeta(ctx context.Context, key string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// CountCategories returns the total number of categories.
func (s *SQLiteStorage) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count)
	return count, err
}

// CountArticles returns the total number of articles.
func (s *SQLiteStorage) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/shiori/internal/hierarchy"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/publish"
	"github.com/hyperjump/shiori/internal/storage"
	"go.uber.org/zap"
)

// PublishKeyHeader carries the shared secret for POST /api/publish.
const PublishKeyHeader = "X-Publish-Key"

type categoriesResponse struct {
	SiteTitle  string                   `json:"_siteTitle"`
	SiteBlocks []models.Block           `json:"_siteBlocks"`
	Categories []*models.CategoryRecord `json:"categories"`
}

type articleResponse struct {
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Blocks      []models.Block      `json:"blocks"`
	LastUpdated time.Time           `json:"lastUpdated"`
	Category    *models.CategoryRef `json:"category"`
}

type publishResponse struct {
	OK         bool   `json:"ok"`
	RunID      string `json:"runId"`
	Categories int    `json:"categories"`
	Articles   int    `json:"articles"`
	SiteTitle  string `json:"siteTitle"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := categoriesResponse{SiteTitle: hierarchy.DefaultSiteTitle, SiteBlocks: []models.Block{}}

	if err := s.storage.GetMeta(ctx, storage.MetaSiteTitle, &resp.SiteTitle); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("categories: read site title failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	if resp.SiteTitle == "" {
		resp.SiteTitle = hierarchy.DefaultSiteTitle
	}
	if err := s.storage.GetMeta(ctx, storage.MetaSiteBlocks, &resp.SiteBlocks); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("categories: read site blocks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	if resp.SiteBlocks == nil {
		resp.SiteBlocks = []models.Block{}
	}

	cats, err := s.storage.ListCategories(ctx)
	if err != nil {
		s.logger.Error("categories: list failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	if cats == nil {
		cats = []*models.CategoryRecord{}
	}
	resp.Categories = cats
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	a, err := s.storage.GetArticleBySlug(r.Context(), slug)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Article not found")
		return
	}
	if err != nil {
		s.logger.Error("article: read failed", zap.String("slug", slug), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch article")
		return
	}
	blocks := a.Blocks
	if blocks == nil {
		blocks = []models.Block{}
	}
	s.respondJSON(w, http.StatusOK, articleResponse{
		Title:       a.Title,
		Slug:        a.Slug,
		Blocks:      blocks,
		LastUpdated: a.LastUpdated,
		Category:    a.Category,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{Query: strings.TrimSpace(q.Get("q"))}
	if query.Query == "" {
		s.respondJSON(w, http.StatusOK, &models.SearchResponse{Results: []*models.SearchResult{}})
		return
	}
	query.Limit = s.config.Search.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = n
	}
	query.Fuzzy = q.Get("fuzzy") == "true"

	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.metrics.Search(false)
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to search articles")
		return
	}
	s.metrics.Search(true)
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if !s.authorizedPublish(r) {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if s.publisher == nil {
		s.respondError(w, http.StatusServiceUnavailable, "publishing not configured")
		return
	}
	// The run outlives a dropped client; only the server shutting down stops it.
	res, err := s.publisher.Run(context.WithoutCancel(r.Context()))
	if errors.Is(err, publish.ErrRunInProgress) {
		s.respondError(w, http.StatusConflict, "Publish already in progress")
		return
	}
	if err != nil {
		s.logger.Error("publish failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to publish content")
		return
	}
	s.respondJSON(w, http.StatusOK, publishResponse{
		OK:         true,
		RunID:      res.RunID,
		Categories: res.Categories,
		Articles:   res.Articles,
		SiteTitle:  res.SiteTitle,
	})
}

// authorizedPublish compares the publish key in constant time. An empty configured key rejects everything.
func (s *Server) authorizedPublish(r *http.Request) bool {
	want := s.config.Publish.Key
	got := r.Header.Get(PublishKeyHeader)
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catCount, err := s.storage.CountCategories(ctx)
	if err != nil {
		s.logger.Error("status: count categories failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	articleCount, err := s.storage.CountArticles(ctx)
	if err != nil {
		s.logger.Error("status: count articles failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"categories":     catCount,
		"articles":       articleCount,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if s.publisher != nil {
		if last := s.publisher.LastResult(); last != nil {
			resp["last_publish"] = last
		}
	}

	paths := append(storage.DatabaseFiles(s.config.Storage.DatabasePath), s.config.Storage.BleveIndexPath)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"database_path":    s.config.Storage.DatabasePath,
		"bleve_index_path": s.config.Storage.BleveIndexPath,
		"root_page_id":     s.config.Source.RootPageID,
		"publish_enabled":  s.publisher != nil && s.config.Publish.Key != "",
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

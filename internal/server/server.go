// Package server provides the HTTP API serving published documentation.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/publish"
	"github.com/hyperjump/shiori/internal/storage"
	"go.uber.org/zap"
)

// Searcher answers search queries.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
}

// Runner triggers publish runs.
type Runner interface {
	Run(ctx context.Context) (*publish.Result, error)
	LastResult() *publish.Result
}

// Server is the HTTP server for the documentation API.
type Server struct {
	engine    Searcher
	publisher Runner
	storage   storage.Storage
	config    *config.Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	server    *http.Server
	started   time.Time
}

// NewServer creates a server with the given dependencies.
// publisher and m may be nil; publishing and /metrics are then unavailable.
func NewServer(
	engine Searcher,
	publisher Runner,
	storage storage.Storage,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:    engine,
		publisher: publisher,
		storage:   storage,
		config:    cfg,
		metrics:   m,
		logger:    logger,
		started:   time.Now(),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.config.Server.CORSAllowedOrigins))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/api/categories", s.handleCategories)
		r.Get("/api/articles/{slug}", s.handleGetArticle)
		r.With(rateLimitMiddleware(s.config.Server.SearchRateLimit, s.config.Server.SearchRateBurst)).
			Get("/api/search", s.handleSearch)
		r.Get("/api/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
	})

	// Publish runs walk the whole workspace and routinely outlast the request timeout.
	r.Post("/api/publish", s.handlePublish)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

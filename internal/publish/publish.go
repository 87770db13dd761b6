// Package publish runs one ingestion: build the page hierarchy and store it.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned by Run while another run holds the publisher.
var ErrRunInProgress = errors.New("publish already in progress")

// HierarchyBuilder produces the hierarchy under a root page.
type HierarchyBuilder interface {
	Build(ctx context.Context, rootID string) (*models.Hierarchy, error)
}

// HierarchyIndexer persists a hierarchy.
type HierarchyIndexer interface {
	IndexHierarchy(ctx context.Context, h *models.Hierarchy) (*indexer.Stats, error)
}

// Result describes a completed run.
type Result struct {
	RunID      string        `json:"runId"`
	SiteTitle  string        `json:"siteTitle"`
	Categories int           `json:"categories"`
	Articles   int           `json:"articles"`
	Duplicates int           `json:"duplicates"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
}

// Publisher serializes publish runs for one root page.
type Publisher struct {
	builder HierarchyBuilder
	indexer HierarchyIndexer
	rootID  string

	mu sync.Mutex

	lastMu sync.RWMutex
	last   *Result

	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithMetrics records run outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// NewPublisher creates a publisher for rootID.
func NewPublisher(builder HierarchyBuilder, idx HierarchyIndexer, rootID string, opts ...Option) *Publisher {
	p := &Publisher{
		builder: builder,
		indexer: idx,
		rootID:  rootID,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Run builds the hierarchy under the root page and stores it.
// A second call while one is running returns ErrRunInProgress immediately.
func (p *Publisher) Run(ctx context.Context) (*Result, error) {
	if p.rootID == "" {
		return nil, fmt.Errorf("root page id not configured")
	}
	if !p.mu.TryLock() {
		p.metrics.PublishFinished(metrics.ResultBusy, 0, 0, 0)
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	res := &Result{RunID: uuid.New().String(), StartedAt: p.now()}
	log := p.logger.With(zap.String("run_id", res.RunID), zap.String("root_id", p.rootID))
	log.Info("publish started")

	h, err := p.builder.Build(ctx, p.rootID)
	if err != nil {
		return nil, p.fail(log, res, fmt.Errorf("build hierarchy: %w", err))
	}
	stats, err := p.indexer.IndexHierarchy(ctx, h)
	if err != nil {
		return nil, p.fail(log, res, fmt.Errorf("store hierarchy: %w", err))
	}

	res.SiteTitle = h.SiteTitle
	res.Categories = stats.Categories
	res.Articles = stats.Articles
	res.Duplicates = stats.Duplicates
	res.Duration = p.now().Sub(res.StartedAt)

	p.lastMu.Lock()
	p.last = res
	p.lastMu.Unlock()
	p.metrics.PublishFinished(metrics.ResultSuccess, res.Duration, res.Categories, res.Articles)

	log.Info("publish finished",
		zap.String("site_title", res.SiteTitle),
		zap.Int("categories", res.Categories),
		zap.Int("articles", res.Articles),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (p *Publisher) fail(log *zap.Logger, res *Result, err error) error {
	p.metrics.PublishFinished(metrics.ResultFailure, p.now().Sub(res.StartedAt), 0, 0)
	log.Error("publish failed", zap.Error(err))
	return err
}

// LastResult returns the most recent successful run, or nil.
func (p *Publisher) LastResult() *Result {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	if p.last == nil {
		return nil
	}
	r := *p.last
	return &r
}

// Package metrics exposes Prometheus instruments for publish runs and source calls.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hyperjump/shiori/internal/notion"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shiori"

// Publish run outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultBusy    = "busy"
)

// Metrics holds the registry and every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sourceRetries     *prometheus.CounterVec
	publishRuns       *prometheus.CounterVec
	publishDuration   prometheus.Histogram
	publishedArticles prometheus.Gauge
	publishedCats     prometheus.Gauge
	searches          *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sourceRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_retries_total",
			Help:      "Retried workspace API calls by reason.",
		}, []string{"reason"}),
		publishRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_runs_total",
			Help:      "Publish runs by result.",
		}, []string{"result"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Duration of completed publish runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		publishedArticles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_articles",
			Help:      "Articles written by the last successful publish.",
		}),
		publishedCats: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_categories",
			Help:      "Categories written by the last successful publish.",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sourceRetries,
		m.publishRuns,
		m.publishDuration,
		m.publishedArticles,
		m.publishedCats,
		m.searches,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SourceRetry records one retried source call. Its signature matches notion.WithOnRetry.
func (m *Metrics) SourceRetry(_ uint, err error) {
	if m == nil {
		return
	}
	m.sourceRetries.WithLabelValues(RetryReason(err)).Inc()
}

// PublishFinished records a run outcome, and on success its duration and counts.
func (m *Metrics) PublishFinished(result string, d time.Duration, categories, articles int) {
	if m == nil {
		return
	}
	m.publishRuns.WithLabelValues(result).Inc()
	if result != ResultSuccess {
		return
	}
	m.publishDuration.Observe(d.Seconds())
	m.publishedCats.Set(float64(categories))
	m.publishedArticles.Set(float64(articles))
}

// Search records one search request.
func (m *Metrics) Search(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// RetryReason maps a retryable error to a low-cardinality label.
func RetryReason(err error) string {
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests || apiErr.Code == notion.CodeRateLimited {
			return "rate_limited"
		}
		return "http_" + strconv.Itoa(apiErr.Status)
	}
	return "network"
}

package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	h       *models.Hierarchy
	err     error
	started chan struct{}
	release chan struct{}
	gotRoot string
}

func (f *fakeBuilder) Build(ctx context.Context, rootID string) (*models.Hierarchy, error) {
	f.gotRoot = rootID
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.h, f.err
}

type fakeIndexer struct {
	stats *indexer.Stats
	err   error
	got   *models.Hierarchy
}

func (f *fakeIndexer) IndexHierarchy(ctx context.Context, h *models.Hierarchy) (*indexer.Stats, error) {
	f.got = h
	return f.stats, f.err
}

func TestPublisher_Run(t *testing.T) {
	h := &models.Hierarchy{SiteTitle: "Acme Docs"}
	b := &fakeBuilder{h: h}
	idx := &fakeIndexer{stats: &indexer.Stats{Categories: 2, Articles: 5}}
	p := NewPublisher(b, idx, "root-1", WithMetrics(metrics.New()))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "root-1", b.gotRoot)
	assert.Same(t, h, idx.got)
	assert.Equal(t, "Acme Docs", res.SiteTitle)
	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, 5, res.Articles)
	assert.NotEmpty(t, res.RunID)

	last := p.LastResult()
	require.NotNil(t, last)
	assert.Equal(t, res.RunID, last.RunID)
}

func TestPublisher_BuildFailure(t *testing.T) {
	b := &fakeBuilder{err: errors.New("source down")}
	idx := &fakeIndexer{}
	p := NewPublisher(b, idx, "root")

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source down")
	assert.Nil(t, idx.got, "indexer must not run after a failed build")
	assert.Nil(t, p.LastResult())
}

func TestPublisher_IndexFailure(t *testing.T) {
	idx := &fakeIndexer{err: errors.New("disk full")}
	p := NewPublisher(&fakeBuilder{h: &models.Hierarchy{}}, idx, "root")
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPublisher_MissingRoot(t *testing.T) {
	p := NewPublisher(&fakeBuilder{}, &fakeIndexer{}, "")
	_, err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestPublisher_RejectsConcurrentRun(t *testing.T) {
	b := &fakeBuilder{
		h:       &models.Hierarchy{SiteTitle: "Docs"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := NewPublisher(b, &fakeIndexer{stats: &indexer.Stats{}}, "root")

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()

	select {
	case <-b.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(b.release)
	require.NoError(t, <-done)

	// The lock is released once the first run returns.
	b.started = nil
	_, err = p.Run(context.Background())
	assert.NoError(t, err)
}

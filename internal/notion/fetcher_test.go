package notion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves scripted children pages keyed by block id.
type fakeSource struct {
	pages    map[string][]ChildrenPage
	errs     map[string][]error
	requests []string
	cursors  []string
}

func (f *fakeSource) RetrievePage(_ context.Context, id string) (*Page, error) {
	return &Page{ID: id}, nil
}

func (f *fakeSource) ListChildren(_ context.Context, id, cursor string, pageSize int) (*ChildrenPage, error) {
	f.requests = append(f.requests, id)
	f.cursors = append(f.cursors, cursor)
	if errs := f.errs[id]; len(errs) > 0 {
		f.errs[id] = errs[1:]
		if errs[0] != nil {
			return nil, errs[0]
		}
	}
	pages := f.pages[id]
	if len(pages) == 0 {
		return &ChildrenPage{}, nil
	}
	p := pages[0]
	f.pages[id] = pages[1:]
	return &p, nil
}

func strptr(s string) *string { return &s }

func blocks(prefix string, n int) []Block {
	out := make([]Block, n)
	for i := range out {
		out[i] = Block{ID: fmt.Sprintf("%s-%d", prefix, i), Type: "paragraph"}
	}
	return out
}

func TestFetcher_ChildrenConcatenatesPages(t *testing.T) {
	src := &fakeSource{pages: map[string][]ChildrenPage{
		"root": {
			{Results: blocks("a", 100), HasMore: true, NextCursor: strptr("c1")},
			{Results: blocks("b", 100), HasMore: true, NextCursor: strptr("c2")},
			{Results: blocks("c", 7), HasMore: false},
		},
	}}
	f := NewFetcher(src, NewRetryPolicy(WithTimer(&recordingTimer{})))

	got, err := f.Children(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, got, 207)
	assert.Equal(t, "a-0", got[0].ID)
	assert.Equal(t, "b-0", got[100].ID)
	assert.Equal(t, "c-6", got[206].ID)
	assert.Equal(t, []string{"", "c1", "c2"}, src.cursors)
}

func TestFetcher_ChildrenStopsOnHasMoreFalseWithEmptyPage(t *testing.T) {
	src := &fakeSource{pages: map[string][]ChildrenPage{
		"root": {
			{Results: blocks("a", 100), HasMore: true, NextCursor: strptr("c1")},
			{Results: nil, HasMore: false},
			{Results: blocks("never", 3)},
		},
	}}
	f := NewFetcher(src, nil)

	got, err := f.Children(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, got, 100)
	assert.Len(t, src.requests, 2)
}

func TestFetcher_ChildrenFollowsCursorPastEmptyPage(t *testing.T) {
	src := &fakeSource{pages: map[string][]ChildrenPage{
		"root": {
			{Results: nil, HasMore: true, NextCursor: strptr("c1")},
			{Results: blocks("b", 2), HasMore: false},
		},
	}}
	f := NewFetcher(src, nil)

	got, err := f.Children(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetcher_ChildrenRetriesTransientPage(t *testing.T) {
	timer := &recordingTimer{}
	src := &fakeSource{
		pages: map[string][]ChildrenPage{
			"root": {
				{Results: blocks("a", 1), HasMore: true, NextCursor: strptr("c1")},
				{Results: blocks("b", 1)},
			},
		},
		errs: map[string][]error{
			"root": {nil, &APIError{Status: 429, RetryAfter: 2 * time.Second}},
		},
	}
	f := NewFetcher(src, NewRetryPolicy(WithTimer(timer)))

	got, err := f.Children(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"", "c1", "c1"}, src.cursors)
	assert.Len(t, timer.delays, 1)
}

func TestFetcher_ChildrenPermanentErrorFails(t *testing.T) {
	src := &fakeSource{errs: map[string][]error{
		"root": {&APIError{Status: 403, Code: "restricted_resource"}},
	}}
	f := NewFetcher(src, NewRetryPolicy(WithTimer(&recordingTimer{})))

	_, err := f.Children(context.Background(), "root")
	require.Error(t, err)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Status)
	assert.Len(t, src.requests, 1)
}

func TestFetcher_ChildrenHasMoreWithoutCursor(t *testing.T) {
	src := &fakeSource{pages: map[string][]ChildrenPage{
		"root": {{Results: blocks("a", 1), HasMore: true}},
	}}
	f := NewFetcher(src, nil)
	_, err := f.Children(context.Background(), "root")
	assert.Error(t, err)
}

func TestFetcher_TableRowsSkipsOtherTypes(t *testing.T) {
	src := &fakeSource{pages: map[string][]ChildrenPage{
		"table": {{Results: []Block{
			{ID: "r1", Type: TypeTableRow},
			{ID: "x", Type: "paragraph"},
			{ID: "r2", Type: TypeTableRow},
		}}},
	}}
	f := NewFetcher(src, nil)

	rows, err := f.TableRows(context.Background(), "table")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].ID)
	assert.Equal(t, "r2", rows[1].ID)
}

func TestFetcher_PageSizeOption(t *testing.T) {
	f := NewFetcher(&fakeSource{}, nil, WithPageSize(25))
	assert.Equal(t, 25, f.pageSize)
	f = NewFetcher(&fakeSource{}, nil, WithPageSize(500))
	assert.Equal(t, MaxPageSize, f.pageSize)
}

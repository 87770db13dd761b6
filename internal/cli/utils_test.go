package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/publish"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "deploy",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{
			{
				Title:          "Deploying",
				Slug:           "deploying",
				ContentPreview: "Push the container image.",
				Category:       &models.CategoryRef{Title: "Guides", Slug: "guides"},
				LastUpdated:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Score:          1,
				Rank:           1,
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Slug != "deploying" {
		t.Errorf("decoded results: %+v", decoded.Results)
	}
	if decoded.Results[0].Category == nil || decoded.Results[0].Category.Slug != "guides" {
		t.Errorf("category lost: %+v", decoded.Results[0].Category)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 results", `"deploy"`, "42ms", "Rank: 1", "Title: Deploying", "/guides/deploying", "Push the container image."} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteSearchResults_textWithoutCategory(t *testing.T) {
	resp := sampleResponse()
	resp.Results[0].Category = nil
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, resp, OutputText)
	if !strings.Contains(buf.String(), "Slug: deploying") {
		t.Errorf("expected slug line:\n%s", buf.String())
	}
}

func TestWriteSearchResults_empty(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteSearchResults(&buf, &models.SearchResponse{Query: "x"}, OutputText)
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWritePublishResult(t *testing.T) {
	res := &publish.Result{RunID: "run-1", SiteTitle: "Acme", Categories: 3, Articles: 12, Duplicates: 1, Duration: 1500 * time.Millisecond}

	var buf bytes.Buffer
	if err := WritePublishResult(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{`"Acme"`, "3 categories", "12 articles", "1.5s", "run-1", "1 duplicate"} {
		if !strings.Contains(out, sub) {
			t.Errorf("missing %q in %q", sub, out)
		}
	}

	buf.Reset()
	if err := WritePublishResult(&buf, res, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded publish.Result
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.RunID != "run-1" || decoded.Articles != 12 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

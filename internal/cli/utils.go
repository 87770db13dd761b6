// Package cli provides output helpers for the shiori command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/publish"
	"github.com/hyperjump/shiori/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "Title: %s\n", result.Title)
	if result.Category != nil {
		fmt.Fprintf(w, "Path: /%s/%s\n", result.Category.Slug, result.Slug)
	} else {
		fmt.Fprintf(w, "Slug: %s\n", result.Slug)
	}
	if result.ContentPreview != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.ContentPreview, 200))
	}
	fmt.Fprintln(w)
}

// WritePublishResult writes a publish run summary to w in the given format.
func WritePublishResult(w io.Writer, res *publish.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Published %q: %d categories, %d articles in %s (run %s)\n",
		res.SiteTitle, res.Categories, res.Articles, res.Duration.Round(time.Millisecond), res.RunID)
	if res.Duplicates > 0 {
		fmt.Fprintf(w, "Warning: %d duplicate article slugs; later pages replaced earlier ones\n", res.Duplicates)
	}
	return nil
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

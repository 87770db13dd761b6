// Package plaintext flattens normalized blocks into single-line search text.
package plaintext

import (
	"strings"

	"github.com/hyperjump/shiori/internal/models"
)

// Flatten returns the text of blocks in depth-first order, joined by single
// spaces with all whitespace runs collapsed and the ends trimmed.
// Rich text, captions, raw text, table cells, children and columns are visited.
func Flatten(blocks []models.Block) string {
	var parts []string
	for i := range blocks {
		parts = collect(parts, &blocks[i])
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collect(parts []string, b *models.Block) []string {
	parts = appendSpans(parts, b.RichText)
	if b.Text != "" {
		parts = append(parts, b.Text)
	}
	if b.Expression != "" {
		parts = append(parts, b.Expression)
	}
	for _, row := range b.Rows {
		for _, cell := range row {
			parts = appendSpans(parts, cell)
		}
	}
	parts = appendSpans(parts, b.Caption)
	for i := range b.Children {
		parts = collect(parts, &b.Children[i])
	}
	for _, col := range b.Columns {
		for i := range col.Children {
			parts = collect(parts, &col.Children[i])
		}
	}
	return parts
}

func appendSpans(parts []string, spans []models.RichSpan) []string {
	for _, s := range spans {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return parts
}

// Preview truncates text to at most n runes, appending "..." when anything was cut.
// n <= 0 returns text unchanged.
func Preview(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

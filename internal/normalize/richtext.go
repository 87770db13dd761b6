// Package normalize converts source blocks and rich text into the normalized content tree.
package normalize

import (
	"strings"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/notion"
)

// NormalizeRichText converts source text runs to spans in the same order.
// It never fails: missing fields fall back to empty values.
func NormalizeRichText(runs []notion.RichText) []models.RichSpan {
	out := make([]models.RichSpan, 0, len(runs))
	for _, r := range runs {
		out = append(out, normalizeSpan(r))
	}
	return out
}

func normalizeSpan(r notion.RichText) models.RichSpan {
	span := models.RichSpan{
		Text:        displayText(r),
		Type:        r.Type,
		Annotations: make(map[string]any, len(r.Annotations)),
	}
	for k, v := range r.Annotations {
		span.Annotations[k] = v
	}
	if r.Href != nil && *r.Href != "" {
		href := *r.Href
		span.Href = &href
	} else if r.Text != nil && r.Text.Link != nil && r.Text.Link.URL != "" {
		href := r.Text.Link.URL
		span.Href = &href
	}
	if r.Equation != nil {
		expr := r.Equation.Expression
		span.Equation = &expr
	}
	if len(r.Mention) > 0 && string(r.Mention) != "null" {
		span.Mention = append([]byte(nil), r.Mention...)
	}
	return span
}

func displayText(r notion.RichText) string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil && r.Text.Content != "" {
		return r.Text.Content
	}
	if r.Equation != nil {
		return r.Equation.Expression
	}
	return ""
}

// PlainText concatenates the display text of runs with no separator.
func PlainText(runs []notion.RichText) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(displayText(r))
	}
	return sb.String()
}

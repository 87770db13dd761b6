package normalize

import (
	"regexp"
	"strings"
)

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\s\p{Z}-]+`)
	slugSpace = regexp.MustCompile(`[\s\p{Z}]+`)
)

// Slugify lowercases title, drops everything but letters a-z, digits, whitespace
// and hyphens, then joins whitespace runs with "-". When nothing survives,
// fallbackID is returned unchanged.
func Slugify(title, fallbackID string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpace.ReplaceAllString(s, "-")
	if s == "" {
		return fallbackID
	}
	return s
}

package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	youtubeEmbedBase = "https://www.youtube-nocookie.com/embed/"
	vimeoPlayerBase  = "https://player.vimeo.com/video/"
)

var (
	youtubeTimestamp = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)
	plainSeconds     = regexp.MustCompile(`^\d+$`)
	vimeoVideoID     = regexp.MustCompile(`^/(?:.*/)?(\d+)`)
)

// EmbeddableVideoURL rewrites YouTube and Vimeo watch links to their embeddable
// player form. Anything it does not recognize is returned unchanged.
func EmbeddableVideoURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch {
	case host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be":
		if strings.Contains(u.Path, "/embed/") {
			return raw
		}
		id := youtubeID(host, u)
		if id == "" {
			return raw
		}
		out := youtubeEmbedBase + url.PathEscape(id)
		if start := parseTimestamp(u.Query().Get("t")); start > 0 {
			out += "?start=" + strconv.Itoa(start)
		}
		return out
	case host == "vimeo.com" || strings.HasSuffix(host, ".vimeo.com"):
		m := vimeoVideoID.FindStringSubmatch(u.Path)
		if m == nil {
			return raw
		}
		return vimeoPlayerBase + m[1]
	}
	return raw
}

func youtubeID(host string, u *url.URL) string {
	if host == "youtu.be" {
		return firstSegment(strings.TrimPrefix(u.Path, "/"))
	}
	if u.Path == "/watch" {
		return u.Query().Get("v")
	}
	if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
		return firstSegment(rest)
	}
	return ""
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// parseTimestamp accepts plain seconds ("90") or an h/m/s form ("1h2m3s", "1m30s").
func parseTimestamp(t string) int {
	if t == "" {
		return 0
	}
	if plainSeconds.MatchString(t) {
		n, _ := strconv.Atoi(t)
		return n
	}
	m := youtubeTimestamp.FindStringSubmatch(t)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	return h*3600 + mins*60 + s
}

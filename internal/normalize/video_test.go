package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddableVideoURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"watch with minutes and seconds", "https://www.youtube.com/watch?v=abc123&t=1m30s", "https://www.youtube-nocookie.com/embed/abc123?start=90"},
		{"watch with hours", "https://youtube.com/watch?v=abc123&t=1h2m3s", "https://www.youtube-nocookie.com/embed/abc123?start=3723"},
		{"watch with plain seconds", "https://www.youtube.com/watch?t=45&v=abc123", "https://www.youtube-nocookie.com/embed/abc123?start=45"},
		{"watch with zero start", "https://www.youtube.com/watch?v=abc123&t=0s", "https://www.youtube-nocookie.com/embed/abc123"},
		{"short link", "https://youtu.be/abc123", "https://www.youtube-nocookie.com/embed/abc123"},
		{"short link with time", "https://youtu.be/abc123?t=30", "https://www.youtube-nocookie.com/embed/abc123?start=30"},
		{"mobile", "https://m.youtube.com/watch?v=xyz", "https://www.youtube-nocookie.com/embed/xyz"},
		{"shorts", "https://www.youtube.com/shorts/s1d2f3", "https://www.youtube-nocookie.com/embed/s1d2f3"},
		{"embed unchanged", "https://www.youtube.com/embed/abc123", "https://www.youtube.com/embed/abc123"},
		{"watch without id unchanged", "https://www.youtube.com/watch?list=PL1", "https://www.youtube.com/watch?list=PL1"},
		{"channel unchanged", "https://www.youtube.com/@somechannel", "https://www.youtube.com/@somechannel"},
		{"bad timestamp ignored", "https://www.youtube.com/watch?v=abc&t=soon", "https://www.youtube-nocookie.com/embed/abc"},
		{"signed seconds ignored", "https://www.youtube.com/watch?v=abc&t=%2B90", "https://www.youtube-nocookie.com/embed/abc"},
		{"vimeo", "https://vimeo.com/76979871", "https://player.vimeo.com/video/76979871"},
		{"vimeo channel path", "https://vimeo.com/channels/staffpicks/76979871", "https://player.vimeo.com/video/76979871"},
		{"vimeo without id", "https://vimeo.com/about", "https://vimeo.com/about"},
		{"unknown host", "https://example.com/video.mp4", "https://example.com/video.mp4"},
		{"not a url", "::not a url::", "::not a url::"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmbeddableVideoURL(tt.in))
		})
	}
}

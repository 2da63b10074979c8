package urlutil

import "testing"

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?t=30", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc123XYZ-_", "abc123XYZ-_"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/channel/UC12345", ""},
		{"https://example.com/watch?v=short", ""},
	}

	for _, tt := range tests {
		if got := YouTubeVideoID(tt.url); got != tt.want {
			t.Errorf("YouTubeVideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestYouTubeEmbedURL(t *testing.T) {
	got := YouTubeEmbedURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	want := "https://www.youtube.com/embed/dQw4w9WgXcQ"
	if got != want {
		t.Errorf("YouTubeEmbedURL = %q, want %q", got, want)
	}

	// No extractable id: pass through unchanged.
	raw := "https://www.youtube.com/playlist?list=PL123"
	if got := YouTubeEmbedURL(raw); got != raw {
		t.Errorf("YouTubeEmbedURL(%q) = %q, want unchanged", raw, got)
	}
}

func TestIsShortLink(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://vm.tiktok.com/ZMabcdef/", true},
		{"https://vt.tiktok.com/ZSabcdef/", true},
		{"https://fb.watch/abc123/", true},
		{"https://t.co/abcdef", true},
		{"https://www.tiktok.com/@user/video/123", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
	}

	for _, tt := range tests {
		if got := IsShortLink(tt.url); got != tt.want {
			t.Errorf("IsShortLink(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  https://example.com/v  ", "https://example.com/v"},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "https://youtube.com/watch?v=dQw4w9WgXcQ"},
		{"http://example.com", "http://example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

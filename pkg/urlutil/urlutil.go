// Package urlutil provides URL helpers for submitted media links.
package urlutil

import (
	"context"
	"regexp"
	"strings"

	"media-fetch-go/pkg/httpclient"
	"media-fetch-go/pkg/logging"
)

// youtubeIDPatterns match the 11-character video id across the URL shapes
// YouTube serves: watch pages, short links, shorts, and embeds.
var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`/live/([A-Za-z0-9_-]{11})`),
}

var shortLinkHosts = []string{
	"vm.tiktok.com",
	"vt.tiktok.com",
	"fb.watch",
	"t.co/",
}

// YouTubeVideoID extracts the video id from a YouTube URL, or "" if none is
// recognizable.
func YouTubeVideoID(rawURL string) string {
	for _, re := range youtubeIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// YouTubeEmbedURL rewrites a watch URL to its embed form, which some
// restriction checks skip. Returns the input unchanged when no video id can
// be extracted.
func YouTubeEmbedURL(rawURL string) string {
	id := YouTubeVideoID(rawURL)
	if id == "" {
		return rawURL
	}
	return "https://www.youtube.com/embed/" + id
}

// IsShortLink reports whether the URL points at a redirect shortener that
// hides the canonical media URL.
func IsShortLink(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, host := range shortLinkHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// Normalize trims whitespace and adds a scheme when the user pasted a bare
// hostname URL.
func Normalize(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}

// Expander resolves shortener redirects to canonical media URLs.
type Expander struct {
	client *httpclient.Client
	log    *logging.Logger
}

// NewExpander creates a short-link expander.
func NewExpander(client *httpclient.Client, log *logging.Logger) *Expander {
	return &Expander{
		client: client,
		log:    log.WithComponent("urlutil"),
	}
}

// Expand follows a short link to its destination and returns the final URL.
// On any failure the original URL is returned so extraction can still try it.
func (e *Expander) Expand(ctx context.Context, rawURL string) string {
	if !IsShortLink(rawURL) {
		return rawURL
	}

	resp, err := e.client.Get(ctx, rawURL)
	if err != nil {
		e.log.Warn("short link expansion failed", "url", rawURL, "error", err)
		return rawURL
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if final != rawURL {
		e.log.Debug("expanded short link", "from", rawURL, "to", final)
	}
	return final
}

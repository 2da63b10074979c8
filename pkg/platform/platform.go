// Package platform classifies media URLs by hosting platform.
// Classification drives which extraction profiles and download arguments are
// used, and rejects unsupported domains before any subprocess is spawned.
package platform

import (
	"strings"

	"media-fetch-go/pkg/types"
)

// domainTokens maps platforms to the URL substrings that identify them,
// including short-link domains. Order matters: the first match wins.
var domainTokens = []struct {
	platform types.Platform
	tokens   []string
}{
	{types.PlatformYouTube, []string{"youtube.com", "youtu.be"}},
	{types.PlatformInstagram, []string{"instagram.com"}},
	{types.PlatformX, []string{"twitter.com", "x.com"}},
	{types.PlatformFacebook, []string{"facebook.com", "fb.com", "fb.watch"}},
	{types.PlatformTikTok, []string{"tiktok.com"}},
}

// FromURL maps a URL to its platform tag. Pure and total: unrecognized URLs
// classify as Unknown, never as an error.
func FromURL(url string) types.Platform {
	for _, entry := range domainTokens {
		for _, token := range entry.tokens {
			if strings.Contains(url, token) {
				return entry.platform
			}
		}
	}
	return types.PlatformUnknown
}

// Supported reports whether the URL belongs to a platform this service
// handles. Unknown-tagged URLs are rejected without subprocess cost.
func Supported(url string) bool {
	return FromURL(url) != types.PlatformUnknown
}

// IsShortForm reports whether the URL points at short-form video content,
// whose downloads typically finish within seconds. Used to decide when
// progress interpolation applies during output silence.
func IsShortForm(url string) bool {
	return strings.Contains(url, "tiktok.com") || strings.Contains(url, "instagram.com/reel")
}

// ExpectedDuration returns the rough wall-clock seconds a short-form download
// takes on this platform, for interpolated progress.
func ExpectedDuration(url string) float64 {
	if strings.Contains(url, "tiktok.com") {
		return 10
	}
	return 15
}

// SupportedList names the supported platforms for user-facing messages.
func SupportedList() string {
	return "YouTube, Instagram, X, Facebook, or TikTok"
}

// Package extract selects and runs platform-specific metadata extraction
// attempts against the download tool.
//
// Each platform gets an ordered list of attempt profiles. Attempts run until
// one succeeds; the last failure is reported when all of them fail.
package extract

import (
	"errors"
	"time"

	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/urlutil"
)

// Profile is one extraction attempt configuration.
type Profile struct {
	Name string

	// RequestURL rewrites the submitted URL for this attempt. Nil keeps the
	// URL as-is.
	RequestURL func(rawURL string) (string, error)

	// Args builds the attempt's extra tool arguments. Called per attempt so
	// user agent rotation re-rolls on retries.
	Args func() []string

	// Jitter window applied before the attempt starts.
	DelayMin time.Duration
	DelayMax time.Duration
}

// Strategy produces the attempt profiles for a platform.
type Strategy interface {
	Name() string
	CanHandle(p types.Platform) bool
	Profiles(rawURL string) []Profile
}

// YouTubeStrategy cycles through player clients. The android and ios clients
// skip most restriction checks, the web client works for plain videos, and
// the embed URL form is a last resort for gated watch pages.
type YouTubeStrategy struct{}

func NewYouTubeStrategy() *YouTubeStrategy { return &YouTubeStrategy{} }

func (s *YouTubeStrategy) Name() string { return "youtube" }

func (s *YouTubeStrategy) CanHandle(p types.Platform) bool {
	return p == types.PlatformYouTube
}

func (s *YouTubeStrategy) Profiles(rawURL string) []Profile {
	return []Profile{
		{
			Name:     "android-client",
			DelayMin: 100 * time.Millisecond,
			DelayMax: 500 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--extractor-args", "youtube:player_client=android",
					"--user-agent", RandomUserAgent(true),
					"--geo-bypass",
				}
			},
		},
		{
			Name:     "ios-client",
			DelayMin: 300 * time.Millisecond,
			DelayMax: 800 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--extractor-args", "youtube:player_client=ios",
					"--user-agent", iosClientUserAgent,
					"--geo-bypass",
				}
			},
		},
		{
			Name:     "web-client",
			DelayMin: 200 * time.Millisecond,
			DelayMax: 700 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--add-header", "Origin:https://www.youtube.com",
					"--add-header", "Referer:https://www.youtube.com/",
					"--user-agent", RandomUserAgent(false),
					"--geo-bypass",
				}
			},
		},
		{
			Name:     "embed-url",
			DelayMin: 300 * time.Millisecond,
			DelayMax: 900 * time.Millisecond,
			RequestURL: func(rawURL string) (string, error) {
				if urlutil.YouTubeVideoID(rawURL) == "" {
					return "", errors.New("could not extract video id")
				}
				return urlutil.YouTubeEmbedURL(rawURL), nil
			},
			Args: func() []string {
				return []string{
					"--user-agent", RandomUserAgent(false),
					"--geo-bypass",
				}
			},
		},
	}
}

// TikTokStrategy tries the mobile API hostname first, then a plain mobile
// request.
type TikTokStrategy struct{}

func NewTikTokStrategy() *TikTokStrategy { return &TikTokStrategy{} }

func (s *TikTokStrategy) Name() string { return "tiktok" }

func (s *TikTokStrategy) CanHandle(p types.Platform) bool {
	return p == types.PlatformTikTok
}

func (s *TikTokStrategy) Profiles(rawURL string) []Profile {
	return []Profile{
		{
			Name:     "mobile-api",
			DelayMin: 200 * time.Millisecond,
			DelayMax: 800 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--extractor-args", "tiktok:api_hostname=m.tiktok.com",
					"--user-agent", RandomUserAgent(true),
					"--add-header", "Accept-Language:en-US,en;q=0.9",
					"--add-header", "sec-ch-ua-mobile:?1",
					"--add-header", `sec-ch-ua-platform:"Android"`,
					"--referer", "https://www.tiktok.com/",
				}
			},
		},
		{
			Name:     "mobile-fallback",
			DelayMin: 500 * time.Millisecond,
			DelayMax: 1000 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--user-agent", RandomUserAgent(true),
					"--referer", "https://www.tiktok.com/",
				}
			},
		},
	}
}

// InstagramStrategy uses a single mobile-browser profile.
type InstagramStrategy struct{}

func NewInstagramStrategy() *InstagramStrategy { return &InstagramStrategy{} }

func (s *InstagramStrategy) Name() string { return "instagram" }

func (s *InstagramStrategy) CanHandle(p types.Platform) bool {
	return p == types.PlatformInstagram
}

func (s *InstagramStrategy) Profiles(rawURL string) []Profile {
	return []Profile{
		{
			Name:     "mobile",
			DelayMin: 200 * time.Millisecond,
			DelayMax: 800 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--user-agent", RandomUserAgent(true),
					"--add-header", "Accept-Language:en-US,en;q=0.9",
					"--add-header", "sec-ch-ua-mobile:?1",
					"--add-header", `sec-ch-ua-platform:"Android"`,
					"--referer", "https://www.instagram.com/",
				}
			},
		},
	}
}

// GenericStrategy is the fallback for platforms without specialized handling.
type GenericStrategy struct{}

func NewGenericStrategy() *GenericStrategy { return &GenericStrategy{} }

func (s *GenericStrategy) Name() string { return "generic" }

// CanHandle always returns false as this is the fallback.
func (s *GenericStrategy) CanHandle(p types.Platform) bool {
	return false
}

func (s *GenericStrategy) Profiles(rawURL string) []Profile {
	return []Profile{
		{
			Name:     "desktop",
			DelayMin: 200 * time.Millisecond,
			DelayMax: 800 * time.Millisecond,
			Args: func() []string {
				return []string{
					"--user-agent", RandomUserAgent(false),
					"--add-header", "Accept-Language:en-US,en;q=0.9",
				}
			},
		},
	}
}

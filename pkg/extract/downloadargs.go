package extract

import (
	"math/rand"

	"media-fetch-go/pkg/formats"
	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/ytdlp"
)

var youtubeClientTypes = []string{"android", "ios", "web"}

// DownloadArgs builds the tool invocation for downloading a chosen format.
// The output template and URL are placed last, matching the tool's expected
// argument order.
func DownloadArgs(rawURL, formatID string, p types.Platform, outputTemplate string) []string {
	args := append([]string{"--newline", "--progress"}, ytdlp.CommonArgs()...)

	// YouTube audio streams fetched by exact id tend to 403; a general
	// best-audio selection with extraction is far more reliable.
	if p == types.PlatformYouTube && formats.IsAudioRequest(formatID) {
		args = append(args,
			"-f", "bestaudio[ext=m4a]/bestaudio",
			"--extract-audio",
			"--audio-format", "mp3",
			"--audio-quality", "0",
		)
	} else {
		args = append(args, "-f", formatID)
	}

	args = append(args, "-o", outputTemplate)
	args = append(args, platformArgs(p)...)
	args = append(args, refererArgs(p)...)
	args = append(args, rawURL)
	return args
}

func platformArgs(p types.Platform) []string {
	switch p {
	case types.PlatformYouTube:
		// Rotate player clients to spread requests across API surfaces.
		client := youtubeClientTypes[rand.Intn(len(youtubeClientTypes))]
		return []string{
			"--extractor-args", "youtube:player_client=" + client,
			"--user-agent", RandomUserAgent(client != "web"),
			"--add-header", "Accept-Language:en-US,en;q=0.9",
			"--add-header", "X-YouTube-Client-Name:3",
			"--add-header", "X-YouTube-Client-Version:17.31.4",
		}
	case types.PlatformTikTok:
		return []string{
			"--user-agent", RandomUserAgent(true),
			"--extractor-args", "tiktok:api_hostname=m.tiktok.com",
			"--no-check-formats",
			"--force-overwrites",
		}
	case types.PlatformInstagram:
		return []string{
			"--user-agent", RandomUserAgent(true),
			"--add-header", "Cookie:sessionid=none",
			"--no-check-formats",
		}
	case types.PlatformX:
		return []string{
			"--user-agent", RandomUserAgent(false),
			"--no-check-formats",
			"--extractor-args", "twitter:api=m",
		}
	case types.PlatformFacebook:
		return []string{
			"--user-agent", RandomUserAgent(false),
			"--no-check-formats",
			"--add-header", "Accept:text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		}
	default:
		return []string{
			"--user-agent", RandomUserAgent(false),
			"--no-check-formats",
		}
	}
}

func refererArgs(p types.Platform) []string {
	switch p {
	case types.PlatformYouTube:
		return []string{"--referer", "https://www.youtube.com/"}
	case types.PlatformInstagram:
		return []string{"--referer", "https://www.instagram.com/"}
	case types.PlatformX:
		return []string{"--referer", "https://twitter.com/"}
	case types.PlatformTikTok:
		return []string{
			"--referer", "https://www.tiktok.com/",
			"--add-header", "Accept-Language:en-US,en;q=0.9",
			"--add-header", `sec-ch-ua:"Google Chrome";v="123", "Not:A-Brand";v="99"`,
			"--add-header", "sec-ch-ua-mobile:?1",
			"--add-header", `sec-ch-ua-platform:"Android"`,
		}
	case types.PlatformFacebook:
		return []string{"--referer", "https://www.facebook.com/"}
	default:
		return nil
	}
}

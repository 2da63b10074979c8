// Package formats normalizes the extraction tool's raw stream list into the
// deduplicated, ordered format options shown to the client.
package formats

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"media-fetch-go/pkg/types"
)

// AudioPrefix marks synthetic or platform-special audio format IDs. Download
// logic treats such IDs as "use best audio, extract and transcode" instead of
// a literal stream selector.
const AudioPrefix = "audio-"

// FallbackAudioID selects the tool's best audio stream when no audio formats
// were observable.
const FallbackAudioID = AudioPrefix + "bestaudio"

var reBitrate = regexp.MustCompile(`(\d+)kbps`)

// Normalize shapes a tool metadata document (--dump-json output) into a
// MediaDescriptor for the given platform.
func Normalize(doc gjson.Result, p types.Platform) types.MediaDescriptor {
	desc := types.MediaDescriptor{
		Title:     "Unknown Title",
		Duration:  FormatDuration(doc.Get("duration").Float()),
		Thumbnail: doc.Get("thumbnail").String(),
		Platform:  p,
	}
	if title := doc.Get("title").String(); title != "" {
		desc.Title = title
	}
	desc.Formats = normalizeFormats(doc.Get("formats"), p)
	return desc
}

func normalizeFormats(raw gjson.Result, p types.Platform) types.FormatList {
	list := types.FormatList{
		Video: []types.VideoFormat{},
		Audio: []types.AudioFormat{},
	}

	seenResolutions := make(map[string]bool)
	seenQualities := make(map[string]bool)

	raw.ForEach(func(_, f gjson.Result) bool {
		vcodec := f.Get("vcodec").String()
		acodec := f.Get("acodec").String()
		hasVideo := vcodec != "" && vcodec != "none"
		hasAudio := acodec != "" && acodec != "none"

		switch {
		case hasVideo && hasAudio:
			// Muxed stream: selectable as video. Video-only streams are
			// deliberately excluded; they would need a separate merge step.
			resolution := "Unknown"
			if h := f.Get("height").Int(); h > 0 {
				resolution = fmt.Sprintf("%dp", h)
			}
			if seenResolutions[resolution] {
				return true
			}
			seenResolutions[resolution] = true

			ext := f.Get("ext").String()
			if ext == "" {
				ext = "mp4"
			}
			list.Video = append(list.Video, types.VideoFormat{
				FormatID:   f.Get("format_id").String(),
				Quality:    resolution,
				Resolution: resolution,
				Filesize:   f.Get("filesize").Int(),
				Extension:  ext,
				Type:       "video",
			})

		case hasAudio && !hasVideo:
			quality := "Unknown"
			bitrate := ""
			if abr := f.Get("abr").Float(); abr > 0 {
				quality = fmt.Sprintf("%dkbps", int(abr))
				bitrate = quality
			}
			if seenQualities[quality] {
				return true
			}
			seenQualities[quality] = true

			formatID := f.Get("format_id").String()
			if p == types.PlatformYouTube {
				// YouTube audio streams routinely 403 when fetched by exact
				// id; the prefix routes them through best-audio extraction.
				formatID = AudioPrefix + formatID
			}

			ext := f.Get("ext").String()
			if ext == "" {
				ext = "mp3"
			}
			list.Audio = append(list.Audio, types.AudioFormat{
				FormatID:  formatID,
				Quality:   quality,
				Bitrate:   bitrate,
				Filesize:  f.Get("filesize").Int(),
				Extension: ext,
				Type:      "audio",
			})
		}
		return true
	})

	// YouTube hides audio stream metadata behind some client profiles; offer
	// a synthetic best-audio option rather than an empty list.
	if len(list.Audio) == 0 && p == types.PlatformYouTube {
		list.Audio = append(list.Audio, types.AudioFormat{
			FormatID:  FallbackAudioID,
			Quality:   "High Quality",
			Bitrate:   "128kbps",
			Filesize:  0,
			Extension: "mp3",
			Type:      "audio",
		})
	}

	sort.SliceStable(list.Video, func(i, j int) bool {
		return resolutionValue(list.Video[i].Resolution) > resolutionValue(list.Video[j].Resolution)
	})
	sort.SliceStable(list.Audio, func(i, j int) bool {
		return bitrateValue(list.Audio[i].Bitrate) > bitrateValue(list.Audio[j].Bitrate)
	})

	return list
}

// resolutionValue parses "1080p" into 1080; unknown labels sort last.
func resolutionValue(label string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(label, "p"))
	if err != nil {
		return 0
	}
	return n
}

// bitrateValue parses "128kbps" into 128; non-numeric labels sort last.
func bitrateValue(label string) int {
	m := reBitrate.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// FormatDuration renders a duration in seconds as M:SS or H:MM:SS.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// IsAudioRequest reports whether a chosen format id selects audio extraction
// rather than a literal stream.
func IsAudioRequest(formatID string) bool {
	return strings.Contains(formatID, "audio")
}

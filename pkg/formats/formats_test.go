package formats

import (
	"testing"

	"github.com/tidwall/gjson"

	"media-fetch-go/pkg/types"
)

const sampleDoc = `{
	"title": "Test Video",
	"duration": 3725,
	"thumbnail": "https://i.example.com/thumb.jpg",
	"formats": [
		{"format_id": "18", "vcodec": "avc1", "acodec": "mp4a", "height": 360, "ext": "mp4", "filesize": 1000},
		{"format_id": "22", "vcodec": "avc1", "acodec": "mp4a", "height": 720, "ext": "mp4", "filesize": 5000},
		{"format_id": "22b", "vcodec": "avc1", "acodec": "mp4a", "height": 720, "ext": "webm", "filesize": 4000},
		{"format_id": "137", "vcodec": "avc1", "acodec": "none", "height": 1080, "ext": "mp4", "filesize": 9000},
		{"format_id": "140", "vcodec": "none", "acodec": "mp4a", "abr": 128, "ext": "m4a", "filesize": 800},
		{"format_id": "141", "vcodec": "none", "acodec": "mp4a", "abr": 256, "ext": "m4a", "filesize": 1600},
		{"format_id": "140b", "vcodec": "none", "acodec": "mp4a", "abr": 128, "ext": "webm", "filesize": 700}
	]
}`

func TestNormalize(t *testing.T) {
	desc := Normalize(gjson.Parse(sampleDoc), types.PlatformYouTube)

	if desc.Title != "Test Video" {
		t.Errorf("Title = %q, want Test Video", desc.Title)
	}
	if desc.Duration != "1:02:05" {
		t.Errorf("Duration = %q, want 1:02:05", desc.Duration)
	}
	if desc.Platform != types.PlatformYouTube {
		t.Errorf("Platform = %v, want youtube", desc.Platform)
	}

	// 360p and 720p muxed; the second 720p and the video-only 1080p drop out.
	if len(desc.Formats.Video) != 2 {
		t.Fatalf("len(Video) = %d, want 2", len(desc.Formats.Video))
	}
	if desc.Formats.Video[0].Resolution != "720p" || desc.Formats.Video[1].Resolution != "360p" {
		t.Errorf("video order = %s, %s, want 720p then 360p",
			desc.Formats.Video[0].Resolution, desc.Formats.Video[1].Resolution)
	}
	if desc.Formats.Video[0].FormatID != "22" {
		t.Errorf("720p FormatID = %q, want 22 (first wins on duplicate resolution)",
			desc.Formats.Video[0].FormatID)
	}

	// 128kbps and 256kbps; the duplicate 128kbps drops out.
	if len(desc.Formats.Audio) != 2 {
		t.Fatalf("len(Audio) = %d, want 2", len(desc.Formats.Audio))
	}
	if desc.Formats.Audio[0].Quality != "256kbps" {
		t.Errorf("audio order: first = %q, want 256kbps", desc.Formats.Audio[0].Quality)
	}
	if desc.Formats.Audio[1].FormatID != "audio-140" {
		t.Errorf("YouTube audio FormatID = %q, want audio-140", desc.Formats.Audio[1].FormatID)
	}
}

func TestNormalizeNonYouTubeAudioID(t *testing.T) {
	doc := gjson.Parse(`{"title": "t", "formats": [
		{"format_id": "hd", "vcodec": "none", "acodec": "aac", "abr": 64, "ext": "m4a"}
	]}`)
	desc := Normalize(doc, types.PlatformTikTok)

	if got := desc.Formats.Audio[0].FormatID; got != "hd" {
		t.Errorf("FormatID = %q, want hd (no prefix off YouTube)", got)
	}
}

func TestNormalizeSyntheticAudioFallback(t *testing.T) {
	doc := gjson.Parse(`{"title": "t", "formats": [
		{"format_id": "22", "vcodec": "avc1", "acodec": "mp4a", "height": 720, "ext": "mp4"}
	]}`)
	desc := Normalize(doc, types.PlatformYouTube)

	if len(desc.Formats.Audio) != 1 {
		t.Fatalf("len(Audio) = %d, want 1 synthetic entry", len(desc.Formats.Audio))
	}
	a := desc.Formats.Audio[0]
	if a.FormatID != FallbackAudioID || a.Quality != "High Quality" || a.Bitrate != "128kbps" {
		t.Errorf("synthetic audio = %+v", a)
	}
}

func TestNormalizeNoSyntheticFallbackOffYouTube(t *testing.T) {
	doc := gjson.Parse(`{"title": "t", "formats": []}`)
	desc := Normalize(doc, types.PlatformInstagram)

	if len(desc.Formats.Audio) != 0 {
		t.Errorf("len(Audio) = %d, want 0", len(desc.Formats.Audio))
	}
}

func TestNormalizeDefaults(t *testing.T) {
	desc := Normalize(gjson.Parse(`{}`), types.PlatformX)

	if desc.Title != "Unknown Title" {
		t.Errorf("Title = %q, want Unknown Title", desc.Title)
	}
	if desc.Duration != "0:00" {
		t.Errorf("Duration = %q, want 0:00", desc.Duration)
	}
}

func TestNormalizeUnknownLabelsSortLast(t *testing.T) {
	doc := gjson.Parse(`{"title": "t", "formats": [
		{"format_id": "a", "vcodec": "avc1", "acodec": "mp4a", "ext": "mp4"},
		{"format_id": "b", "vcodec": "avc1", "acodec": "mp4a", "height": 480, "ext": "mp4"}
	]}`)
	desc := Normalize(doc, types.PlatformFacebook)

	if desc.Formats.Video[0].Resolution != "480p" || desc.Formats.Video[1].Resolution != "Unknown" {
		t.Errorf("order = %s, %s, want 480p then Unknown",
			desc.Formats.Video[0].Resolution, desc.Formats.Video[1].Resolution)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{185, "3:05"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{7325.8, "2:02:05"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestIsAudioRequest(t *testing.T) {
	if !IsAudioRequest("audio-140") || !IsAudioRequest(FallbackAudioID) {
		t.Error("prefixed ids must classify as audio")
	}
	if IsAudioRequest("137") {
		t.Error("bare video id must not classify as audio")
	}
}

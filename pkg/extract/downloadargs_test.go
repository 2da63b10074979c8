package extract

import (
	"strings"
	"testing"

	"media-fetch-go/pkg/types"
)

func TestDownloadArgsVideo(t *testing.T) {
	args := DownloadArgs("https://www.youtube.com/watch?v=x", "22", types.PlatformYouTube, "downloads/%(title)s.%(ext)s")
	joined := strings.Join(args, " ")

	if args[0] != "--newline" || args[1] != "--progress" {
		t.Errorf("args must start with --newline --progress, got %v", args[:2])
	}
	if !strings.Contains(joined, "-f 22") {
		t.Errorf("missing format selection: %q", joined)
	}
	if !strings.Contains(joined, "youtube:player_client=") {
		t.Errorf("missing client rotation: %q", joined)
	}
	if !strings.Contains(joined, "--referer https://www.youtube.com/") {
		t.Errorf("missing referer: %q", joined)
	}
	if args[len(args)-1] != "https://www.youtube.com/watch?v=x" {
		t.Errorf("URL must come last, got %q", args[len(args)-1])
	}
}

func TestDownloadArgsYouTubeAudio(t *testing.T) {
	args := DownloadArgs("https://youtu.be/x", "audio-140", types.PlatformYouTube, "out.%(ext)s")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "bestaudio[ext=m4a]/bestaudio") {
		t.Errorf("audio request must select best audio, got %q", joined)
	}
	if !strings.Contains(joined, "--extract-audio") || !strings.Contains(joined, "--audio-format mp3") {
		t.Errorf("audio request must extract mp3, got %q", joined)
	}
	if strings.Contains(joined, "-f audio-140") {
		t.Errorf("literal audio id must not be passed: %q", joined)
	}
}

func TestDownloadArgsAudioIDOffYouTubeStaysLiteral(t *testing.T) {
	args := DownloadArgs("https://www.tiktok.com/@u/video/1", "audio-hd", types.PlatformTikTok, "out.%(ext)s")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-f audio-hd") {
		t.Errorf("non-YouTube audio ids pass through literally: %q", joined)
	}
}

func TestDownloadArgsTikTok(t *testing.T) {
	args := DownloadArgs("https://www.tiktok.com/@u/video/1", "0", types.PlatformTikTok, "out.%(ext)s")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"tiktok:api_hostname=m.tiktok.com",
		"--no-check-formats",
		"--force-overwrites",
		"--referer https://www.tiktok.com/",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in %q", want, joined)
		}
	}
}

func TestDownloadArgsGeneric(t *testing.T) {
	args := DownloadArgs("https://vimeo.com/1", "best", types.PlatformUnknown, "out.%(ext)s")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-f best") || !strings.Contains(joined, "--no-check-formats") {
		t.Errorf("generic args incomplete: %q", joined)
	}
	if strings.Contains(joined, "--referer") {
		t.Errorf("unknown platform must not set a referer: %q", joined)
	}
}

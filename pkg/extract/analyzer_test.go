package extract

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/types"
	"media-fetch-go/pkg/ytdlp"
)

type fakeRunner struct {
	calls   [][]string
	outputs []fakeResult
}

type fakeResult struct {
	out []byte
	err error
}

func (f *fakeRunner) Output(ctx context.Context, args []string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if len(f.outputs) == 0 {
		return nil, &ytdlp.RunError{Err: context.DeadlineExceeded, Stderr: "ERROR: no output configured"}
	}
	r := f.outputs[0]
	f.outputs = f.outputs[1:]
	return r.out, r.err
}

type fakeExpander struct {
	from, to string
}

func (f *fakeExpander) Expand(ctx context.Context, rawURL string) string {
	if rawURL == f.from {
		return f.to
	}
	return rawURL
}

func newTestAnalyzer(runner *fakeRunner, expander *fakeExpander) *Analyzer {
	log := logging.New("error", false, io.Discard)
	var a *Analyzer
	if expander != nil {
		a = NewAnalyzer(runner, DefaultRegistry(), expander, nil, log)
	} else {
		a = NewAnalyzer(runner, DefaultRegistry(), nil, nil, log)
	}
	a.sleep = func(time.Duration) {}
	return a
}

func TestAnalyzeFirstProfileSucceeds(t *testing.T) {
	runner := &fakeRunner{outputs: []fakeResult{
		{out: []byte(`{"title": "Clip", "duration": 65, "formats": [
			{"format_id": "22", "vcodec": "avc1", "acodec": "mp4a", "height": 720, "ext": "mp4"}
		]}`)},
	}}
	a := newTestAnalyzer(runner, nil)

	desc, err := a.Analyze(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if desc.Title != "Clip" || desc.Platform != types.PlatformYouTube {
		t.Errorf("descriptor = %+v", desc)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("attempts = %d, want 1", len(runner.calls))
	}

	args := runner.calls[0]
	if args[0] != "--dump-json" {
		t.Errorf("args[0] = %q, want --dump-json", args[0])
	}
	if got := args[len(args)-1]; got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("last arg = %q, want the URL", got)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "youtube:player_client=android") {
		t.Errorf("first attempt must use the android client, got %q", joined)
	}
}

func TestAnalyzeFallsThroughProfiles(t *testing.T) {
	runner := &fakeRunner{outputs: []fakeResult{
		{err: &ytdlp.RunError{Err: errExit, Stderr: "ERROR: something odd"}},
		{err: &ytdlp.RunError{Err: errExit, Stderr: "ERROR: something odd"}},
		{out: []byte(`{"title": "Third Time", "formats": []}`)},
	}}
	a := newTestAnalyzer(runner, nil)

	desc, err := a.Analyze(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if desc.Title != "Third Time" {
		t.Errorf("Title = %q", desc.Title)
	}
	if len(runner.calls) != 3 {
		t.Errorf("attempts = %d, want 3", len(runner.calls))
	}
}

func TestAnalyzeAllProfilesFailReturnsLastFault(t *testing.T) {
	runner := &fakeRunner{outputs: []fakeResult{
		{err: &ytdlp.RunError{Err: errExit, Stderr: "ERROR: odd"}},
		{err: &ytdlp.RunError{Err: errExit, Stderr: "ERROR: odd"}},
		{err: &ytdlp.RunError{Err: errExit, Stderr: "ERROR: odd"}},
		{err: &ytdlp.RunError{Err: errExit, Stderr: "ERROR: Private video"}},
	}}
	a := newTestAnalyzer(runner, nil)

	_, err := a.Analyze(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err == nil {
		t.Fatal("Analyze succeeded, want fault")
	}
	fault, ok := err.(*types.Fault)
	if !ok {
		t.Fatalf("error type %T, want *types.Fault", err)
	}
	if fault.Class != types.FaultAccessDenied {
		t.Errorf("Class = %v, want access_denied (last attempt's fault)", fault.Class)
	}
	if len(runner.calls) != 4 {
		t.Errorf("attempts = %d, want 4", len(runner.calls))
	}
}

func TestAnalyzeSkipsEmbedWithoutVideoID(t *testing.T) {
	runner := &fakeRunner{} // every call fails
	a := newTestAnalyzer(runner, nil)

	// Channel URLs carry no extractable video id, so the embed rewrite
	// cannot run.
	_, err := a.Analyze(context.Background(), "https://www.youtube.com/channel/UCabc")
	if err == nil {
		t.Fatal("Analyze succeeded, want fault")
	}
	if len(runner.calls) != 3 {
		t.Errorf("attempts = %d, want 3 (embed skipped)", len(runner.calls))
	}
}

func TestAnalyzeExpandsShortLinks(t *testing.T) {
	expander := &fakeExpander{
		from: "https://vm.tiktok.com/ZMabc/",
		to:   "https://www.tiktok.com/@user/video/123",
	}
	runner := &fakeRunner{outputs: []fakeResult{
		{out: []byte(`{"title": "Short", "formats": []}`)},
	}}
	a := newTestAnalyzer(runner, expander)

	desc, err := a.Analyze(context.Background(), "https://vm.tiktok.com/ZMabc/")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if desc.Platform != types.PlatformTikTok {
		t.Errorf("Platform = %v, want tiktok", desc.Platform)
	}

	args := runner.calls[0]
	if got := args[len(args)-1]; got != expander.to {
		t.Errorf("tool received %q, want expanded URL %q", got, expander.to)
	}
}

func TestAnalyzeUnknownPlatformUsesFallback(t *testing.T) {
	runner := &fakeRunner{outputs: []fakeResult{
		{out: []byte(`{"title": "Elsewhere", "formats": []}`)},
	}}
	a := newTestAnalyzer(runner, nil)

	desc, err := a.Analyze(context.Background(), "https://vimeo.com/12345")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if desc.Platform != types.PlatformUnknown {
		t.Errorf("Platform = %v, want unknown", desc.Platform)
	}
	if len(runner.calls) != 1 {
		t.Errorf("attempts = %d, want 1 (generic single profile)", len(runner.calls))
	}
}

var errExit = &exitMarker{}

type exitMarker struct{}

func (e *exitMarker) Error() string { return "exit status 1" }

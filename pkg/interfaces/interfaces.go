// Package interfaces defines the contracts between components.
// Using interfaces allows for dependency injection and easier testing.
package interfaces

import (
	"context"
	"time"

	"media-fetch-go/pkg/types"
)

// ToolRunner runs the external download tool and captures its output.
type ToolRunner interface {
	Output(ctx context.Context, args []string) ([]byte, error)
}

// URLExpander resolves shortener redirects to canonical media URLs.
type URLExpander interface {
	Expand(ctx context.Context, rawURL string) string
}

// AuthProvider supplies extra tool arguments carrying stored credentials for
// a platform. Returns nil when no credentials are stored.
type AuthProvider interface {
	AuthArgs(p types.Platform) []string
}

// Analyzer inspects a media URL and reports its downloadable formats.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string) (*types.MediaDescriptor, error)
}

// Downloader manages download sessions against the external tool.
type Downloader interface {
	// Start launches a download session and returns its id.
	Start(rawURL, formatID, quality string) (string, error)

	// Snapshot returns the current progress of a session.
	Snapshot(id string) (types.ProgressSnapshot, bool)

	// FilePath returns the produced file's path once a session completed.
	FilePath(id string) (string, bool)

	// Cancel stops a running session and removes its partial file.
	Cancel(id string) error

	// DeleteFileAfter removes a session's output file after the delay.
	DeleteFileAfter(id string, delay time.Duration)

	// Active returns the number of non-terminal sessions.
	Active() int

	// Close stops all sessions.
	Close() error
}

// Package types defines core domain types used throughout the application.
package types

// Platform identifies the social-media platform a URL belongs to.
type Platform string

const (
	PlatformYouTube   Platform = "YouTube"
	PlatformInstagram Platform = "Instagram"
	PlatformX         Platform = "X"
	PlatformFacebook  Platform = "Facebook"
	PlatformTikTok    Platform = "TikTok"
	PlatformUnknown   Platform = "Unknown"
)

// SessionStatus represents the lifecycle state of a download session.
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsTerminal returns true once no further progress updates can follow.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusCancelled
}

// ProgressSnapshot is the client-visible progress state of one download
// session. The download manager mutates it in place as subprocess output is
// parsed; readers always receive a copy.
type ProgressSnapshot struct {
	Progress       float64 `json:"progress"`
	Filename       string  `json:"filename"`
	TotalSize      int64   `json:"totalSize"`
	DownloadedSize int64   `json:"downloadedSize"`
	RemainingTime  string  `json:"remainingTime"`

	Completed bool   `json:"completed,omitempty"`
	Success   bool   `json:"success,omitempty"`
	Error     bool   `json:"error,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Message   string `json:"message,omitempty"`

	Platform     Platform `json:"platform,omitempty"`
	DownloadTime string   `json:"downloadTime,omitempty"`
}

// Status derives the session state from the snapshot's terminal flags.
func (p *ProgressSnapshot) Status() SessionStatus {
	switch {
	case p.Cancelled:
		return SessionStatusCancelled
	case p.Error:
		return SessionStatusFailed
	case p.Completed && p.Success:
		return SessionStatusCompleted
	default:
		return SessionStatusRunning
	}
}

// VideoFormat describes one downloadable video variant (video+audio muxed).
type VideoFormat struct {
	FormatID   string `json:"formatId"`
	Quality    string `json:"quality"`
	Resolution string `json:"resolution"`
	Filesize   int64  `json:"filesize"`
	Extension  string `json:"extension"`
	Type       string `json:"type"`
}

// AudioFormat describes one downloadable audio-only variant.
type AudioFormat struct {
	FormatID  string `json:"formatId"`
	Quality   string `json:"quality"`
	Bitrate   string `json:"bitrate,omitempty"`
	Filesize  int64  `json:"filesize"`
	Extension string `json:"extension"`
	Type      string `json:"type"`
}

// FormatList holds the normalized, deduplicated format options for a URL.
type FormatList struct {
	Video []VideoFormat `json:"video"`
	Audio []AudioFormat `json:"audio"`
}

// MediaDescriptor is the result of analyzing a URL: basic metadata plus the
// selectable formats. It is returned to the client and never persisted.
type MediaDescriptor struct {
	Title     string     `json:"title"`
	Thumbnail string     `json:"thumbnail"`
	Duration  string     `json:"duration"`
	Platform  Platform   `json:"platform"`
	Formats   FormatList `json:"formats"`
}

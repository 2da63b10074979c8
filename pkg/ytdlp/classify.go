package ytdlp

import (
	"fmt"
	"strings"

	"media-fetch-go/pkg/types"
)

// faultPatterns maps known tool output substrings to classified, user-facing
// faults. Matching is ordered and case-sensitive: the bot-protection line
// must win over the bare "sign in" fallback, and raw tool text is never
// forwarded to the client.
var faultPatterns = []struct {
	pattern string
	class   types.FaultClass
	message string
}{
	{"Sign in to confirm you're not a bot", types.FaultAccessDenied,
		"YouTube bot protection triggered. Please try a different URL or try again later."},
	{"is not available in your country", types.FaultLegallyUnavailable,
		"This content is not available in your region due to restrictions."},
	{"Private video", types.FaultAccessDenied,
		"This video is private and cannot be accessed."},
	{"age-restricted", types.FaultAccessDenied,
		"This content is age-restricted and cannot be downloaded."},
	{"This video is unavailable", types.FaultNotFound,
		"This video is unavailable or has been removed."},
	{"COPYRIGHT_CLAIM", types.FaultLegallyUnavailable,
		"This content has been removed due to a copyright claim."},
	{"Unable to extract", types.FaultNotFound,
		"Unable to extract video information. The link may be invalid or content is no longer available."},
	{"Unsupported URL", types.FaultBadInput,
		"Unsupported URL or website. Please try with a URL from a supported platform (YouTube, Instagram, Twitter, Facebook, TikTok)."},
	{"Premieres in", types.FaultNotFound,
		"This video is a premiere and has not been released yet."},
	{"This live event will begin in", types.FaultNotFound,
		"This is a scheduled live stream that has not started yet."},
	{"doesn't exist", types.FaultNotFound,
		"This content does not exist or has been removed."},
	{"members only", types.FaultAccessDenied,
		"This content is for channel members only and cannot be accessed."},
	{"sign in", types.FaultAccessDenied,
		"This content requires sign-in and cannot be accessed."},
	{"requested format not available", types.FaultBadInput,
		"The requested video format is not available."},
	{"Unable to download", types.FaultBadInput,
		"Unable to download. The video format may be incompatible or protected."},
	{"Network is unreachable", types.FaultTransient,
		"Network error. Please check your internet connection and try again."},
}

// Classify scans tool output text for a known failure substring. Returns nil
// when nothing matches, so streaming callers can keep waiting.
func Classify(output string) *types.Fault {
	for _, p := range faultPatterns {
		if strings.Contains(output, p.pattern) {
			return types.NewFault(p.class, p.message)
		}
	}
	return nil
}

// IsFatal reports whether streaming tool output signals an unrecoverable
// failure worth killing the process over. Beyond the classified substrings it
// matches the tool's generic error prefix; classification of those waits for
// the accumulated stderr and exit code.
func IsFatal(output string) bool {
	return Classify(output) != nil || strings.Contains(output, "ERROR: ")
}

// ClassifyExit classifies a finished subprocess from its accumulated stderr
// and exit code. Unlike Classify it always produces a fault.
func ClassifyExit(stderr string, exitCode int) *types.Fault {
	if f := Classify(stderr); f != nil {
		return f
	}
	return types.NewFault(types.FaultGeneric,
		fmt.Sprintf("Download failed with exit code %d. Please try a different video or format.", exitCode))
}

// ClassifyRunError classifies an Output invocation failure.
func ClassifyRunError(err error) *types.Fault {
	if runErr, ok := err.(*RunError); ok {
		if f := Classify(runErr.Stderr); f != nil {
			return f
		}
	}
	return types.NewFault(types.FaultGeneric,
		"Failed to analyze URL. Please verify the URL is correct and try again.")
}
